package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorycadets/admissions-agent/app/services"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	testingutil "github.com/victorycadets/admissions-agent/testing"
)

func TestVoiceHandlerWebhooks(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		app := newTestApp(testDB.DB, services.NewMockTelephonyClient())
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		leadRepo := repository.NewLeadRepository(testDB.DB)
		callRepo := repository.NewCallRecordRepository(testDB.DB)

		script, err := fixtures.CreateDefaultScript()
		require.NoError(t, err)

		t.Run("InboundFromForm", func(t *testing.T) {
			resp, body := postForm(t, app, "/api/voice/inbound", url.Values{
				"CallSid": {"CA-h-in"},
				"From":    {"+911234567890"},
			})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, services.TwiMLContentType, resp.Header.Get(fiber.HeaderContentType))
			assert.Contains(t, body, "Please press 1 to book a free demo class")
			assert.Contains(t, body, "<Dial>+911100000000</Dial>")

			lead, err := leadRepo.ByPhone(ctx, "+911234567890")
			require.NoError(t, err)
			require.NotNil(t, lead)
			assert.Equal(t, models.LeadStatusContacted, lead.Status)
		})

		t.Run("OutboundFromQuery", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadStatusNew)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet,
				"/api/voice/outbound?leadId="+lead.UUID.String()+"&scriptId="+script.UUID.String(), nil)
			resp, body := do(t, app, req)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, services.TwiMLContentType, resp.Header.Get(fiber.HeaderContentType))
			assert.Contains(t, body, "<Gather")
			assert.Contains(t, body, "node=AWAITING_CONFIRMATION")
		})

		t.Run("OutboundMissingParameters", func(t *testing.T) {
			resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/voice/outbound", nil))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, services.TwiMLContentType, resp.Header.Get(fiber.HeaderContentType))
			assert.Contains(t, body, "<Hangup>")
		})

		t.Run("ContinueLeadIDFromQueryAttemptFromForm", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
			require.NoError(t, err)

			resp, body := postForm(t, app,
				"/api/voice/continue?leadId="+lead.UUID.String()+"&scriptId="+script.UUID.String()+"&node=AWAITING_CONFIRMATION",
				url.Values{"CallSid": {"CA-h-c1"}, "SpeechResult": {"Yes, book the demo"}, "attempt": {"0"}})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "Wonderful!")

			updated, err := leadRepo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusDemoScheduled, updated.Status)
		})

		t.Run("ContinueLeadIDFromForm", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
			require.NoError(t, err)

			_, body := postForm(t, app, "/api/voice/continue", url.Values{
				"CallSid":      {"CA-h-c2"},
				"leadId":       {lead.UUID.String()},
				"scriptId":     {script.UUID.String()},
				"node":         {"AWAITING_CONFIRMATION"},
				"SpeechResult": {"hmm maybe later"},
			})
			assert.Contains(t, body, "<Redirect")
			assert.Contains(t, body, "/api/voice/objection?")
		})

		t.Run("MalformedAttemptTreatedAsFirst", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
			require.NoError(t, err)

			resp, body := postForm(t, app,
				"/api/voice/objection?leadId="+lead.UUID.String()+"&scriptId="+script.UUID.String()+"&attempt=abc",
				url.Values{"CallSid": {"CA-h-o1"}})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "attempt=0")
			assert.Contains(t, body, "node=OBJECTION_HANDLING")
		})

		t.Run("StatusCallback", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
			require.NoError(t, err)

			resp, body := postForm(t, app, "/api/voice/status?leadId="+lead.UUID.String(), url.Values{
				"CallSid":      {"CA-h-s1"},
				"CallStatus":   {"completed"},
				"CallDuration": {"42"},
				"RecordingUrl": {"https://recordings.example.com/CA-h-s1"},
			})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"ok":true}`, body)

			record, err := callRepo.ByCallSid(ctx, "CA-h-s1")
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, models.CallDispositionCompleted, record.Disposition)
			require.NotNil(t, record.DurationSeconds)
			assert.Equal(t, 42, *record.DurationSeconds)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVoiceHandlerOffline(t *testing.T) {
	app := newTestApp(nil, services.NewMockTelephonyClient())

	resp, body := postForm(t, app, "/api/voice/inbound", url.Values{"From": {"+911234567890"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.TwiMLContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, body, "admissions desk is currently offline")

	resp, body = postForm(t, app, "/api/voice/continue?leadId=00000000-0000-0000-0000-000000000001", url.Values{"SpeechResult": {"yes"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "We are currently offline.")

	resp, body = postForm(t, app, "/api/voice/status", url.Values{"CallSid": {"CA-off"}, "CallStatus": {"completed"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)
}

func TestVoiceHandlerStatusStoreFailure(t *testing.T) {
	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	app := newTestApp(testDB.DB, services.NewMockTelephonyClient())
	require.NoError(t, testDB.Close())

	resp, body := postForm(t, app, "/api/voice/status", url.Values{
		"CallSid":    {"CA-broken"},
		"CallStatus": {"completed"},
		"leadId":     {"00000000-0000-0000-0000-000000000001"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	apiResp := decodeAPIResponse(t, body)
	assert.False(t, apiResp.Success)
	assert.Equal(t, "PERSISTENCE_UNAVAILABLE", apiResp.Error.Code)

	resp, body = postForm(t, app, "/api/voice/inbound", url.Values{"From": {"+911234567890"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "admissions desk is currently offline")
}
