package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorycadets/admissions-agent/config"
)

func newTestTwilioClient(serverURL string) *TwilioClient {
	return NewTwilioClient(config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		APIBaseURL: serverURL,
		Timeout:    5 * time.Second,
	})
}

func TestTwilioClientPlaceCall(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA42","status":"queued"}`))
	}))
	defer server.Close()

	client := newTestTwilioClient(server.URL)
	result, err := client.PlaceCall(context.Background(), PlaceCallRequest{
		To:             "+919876543210",
		From:           "+15005550006",
		URL:            "https://agent.example.com/api/voice/outbound?leadId=l&scriptId=s",
		StatusCallback: "https://agent.example.com/api/voice/status?leadId=l",
	})
	require.NoError(t, err)
	assert.Equal(t, "CA42", result.Sid)
	assert.Equal(t, "queued", result.Status)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/Accounts/AC123/Calls.json", got.URL.Path)
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "+919876543210", got.PostForm.Get("To"))
	assert.Equal(t, "+15005550006", got.PostForm.Get("From"))
	assert.Equal(t, "GET", got.PostForm.Get("Method"))
	assert.Equal(t, "POST", got.PostForm.Get("StatusCallbackMethod"))
	assert.Equal(t, []string{"initiated", "ringing", "answered", "completed"}, got.PostForm["StatusCallbackEvent"])
}

func TestTwilioClientRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer server.Close()

	client := newTestTwilioClient(server.URL)
	_, err := client.PlaceCall(context.Background(), PlaceCallRequest{To: "bad", From: "+15005550006", URL: "https://x/y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioClientRequiresFields(t *testing.T) {
	client := newTestTwilioClient("http://127.0.0.1:0")
	_, err := client.PlaceCall(context.Background(), PlaceCallRequest{From: "+15005550006", URL: "https://x/y"})
	assert.Error(t, err)
}

func TestMockTelephonyClient(t *testing.T) {
	mock := NewMockTelephonyClient()
	result, err := mock.PlaceCall(context.Background(), PlaceCallRequest{To: "+919876543210"})
	require.NoError(t, err)
	assert.Regexp(t, `^CA[0-9a-f]{32}$`, result.Sid)
	assert.Len(t, mock.Calls(), 1)

	mock.Err = errors.New("boom")
	_, err = mock.PlaceCall(context.Background(), PlaceCallRequest{To: "+919876543210"})
	assert.Error(t, err)
	assert.Len(t, mock.Calls(), 1)
}

func TestNewTelephonyClient(t *testing.T) {
	_, ok := NewTelephonyClient(config.TwilioConfig{Provider: "mock"}).(*MockTelephonyClient)
	assert.True(t, ok)
	_, ok = NewTelephonyClient(config.TwilioConfig{Provider: "twilio"}).(*TwilioClient)
	assert.True(t, ok)
}
