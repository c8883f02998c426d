package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/victorycadets/admissions-agent/config"
)

// PlaceCallRequest describes an outbound call
type PlaceCallRequest struct {
	To             string
	From           string
	URL            string
	Method         string
	StatusCallback string
}

// PlaceCallResult is the provider's answer to a dial request
type PlaceCallResult struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// TelephonyClient places outbound calls with the telephony provider
type TelephonyClient interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error)
}

// NewTelephonyClient returns the client configured by cfg.Provider
func NewTelephonyClient(cfg config.TwilioConfig) TelephonyClient {
	if cfg.Provider == "mock" {
		return NewMockTelephonyClient()
	}
	return NewTwilioClient(cfg)
}

// TwilioClient calls the Twilio REST API
type TwilioClient struct {
	accountSID string
	client     *resty.Client
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// NewTwilioClient creates a Twilio REST client. Requests are single attempts; the caller decides on retries.
func NewTwilioClient(cfg config.TwilioConfig) *TwilioClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &TwilioClient{accountSID: cfg.AccountSID, client: client}
}

// PlaceCall asks Twilio to dial req.To and fetch call instructions from req.URL
func (c *TwilioClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error) {
	if req.To == "" || req.From == "" || req.URL == "" {
		return nil, errors.New("twilio: to, from and url are required")
	}
	method := req.Method
	if method == "" {
		method = "GET"
	}

	form := url.Values{
		"To":     {req.To},
		"From":   {req.From},
		"Url":    {req.URL},
		"Method": {method},
	}
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
		form.Set("StatusCallbackMethod", "POST")
		form["StatusCallbackEvent"] = []string{"initiated", "ringing", "answered", "completed"}
	}

	var result PlaceCallResult
	var apiErr twilioError
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/Accounts/%s/Calls.json", c.accountSID))
	if err != nil {
		return nil, fmt.Errorf("twilio: failed to place call: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return nil, fmt.Errorf("twilio: place call rejected (%d, code %d): %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("twilio: place call rejected with status %d", resp.StatusCode())
	}
	if result.Sid == "" {
		return nil, errors.New("twilio: response carried no call sid")
	}

	return &result, nil
}

// MockTelephonyClient records calls instead of dialing. Used for local runs and tests.
type MockTelephonyClient struct {
	mu    sync.Mutex
	calls []PlaceCallRequest
	Err   error
}

func NewMockTelephonyClient() *MockTelephonyClient {
	return &MockTelephonyClient{}
}

// PlaceCall records req and returns a synthetic call sid
func (m *MockTelephonyClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	m.calls = append(m.calls, req)
	return &PlaceCallResult{
		Sid:    "CA" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status: "queued",
	}, nil
}

// Calls returns the requests placed so far
func (m *MockTelephonyClient) Calls() []PlaceCallRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PlaceCallRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
