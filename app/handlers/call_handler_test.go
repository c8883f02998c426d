package handlers_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/victorycadets/admissions-agent/app/services"
	"github.com/victorycadets/admissions-agent/models"
	testingutil "github.com/victorycadets/admissions-agent/testing"
)

func TestCallHandlerInitiateCall(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		mock := services.NewMockTelephonyClient()
		app := newTestApp(testDB.DB, mock)
		fixtures := testingutil.NewTestFixtures(testDB)

		lead, err := fixtures.CreateTestLead(models.LeadStatusNew)
		require.NoError(t, err)

		t.Run("Success", func(t *testing.T) {
			resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/"+lead.UUID.String()+"/call", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			apiResp := decodeAPIResponse(t, body)
			assert.True(t, apiResp.Success)
			data, ok := apiResp.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, lead.UUID.String(), data["lead_id"])
			assert.NotEmpty(t, data["sid"])
			assert.Len(t, mock.Calls(), 1)
		})

		t.Run("InvalidScriptID", func(t *testing.T) {
			resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/"+lead.UUID.String()+"/call", `{"script_id":"not-a-uuid"}`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", decodeAPIResponse(t, body).Error.Code)
		})

		t.Run("MalformedBody", func(t *testing.T) {
			resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/"+lead.UUID.String()+"/call", `{"script_id":`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_REQUEST", decodeAPIResponse(t, body).Error.Code)
		})

		t.Run("UnknownLead", func(t *testing.T) {
			resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/00000000-0000-0000-0000-000000000009/call", "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "LEAD_NOT_FOUND", decodeAPIResponse(t, body).Error.Code)
		})

		t.Run("UnknownScript", func(t *testing.T) {
			resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/"+lead.UUID.String()+"/call",
				`{"script_id":"00000000-0000-0000-0000-000000000003"}`)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "SCRIPT_NOT_FOUND", decodeAPIResponse(t, body).Error.Code)
		})

		t.Run("TelephonyFailure", func(t *testing.T) {
			failing := services.NewMockTelephonyClient()
			failing.Err = errors.New("provider down")
			failingApp := newTestApp(testDB.DB, failing)

			resp, body := sendJSON(t, failingApp, http.MethodPost, "/api/leads/"+lead.UUID.String()+"/call", "")
			assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
			assert.Equal(t, "TELEPHONY_FAILED", decodeAPIResponse(t, body).Error.Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCallHandlerInitiateCallOffline(t *testing.T) {
	app := newTestApp(nil, services.NewMockTelephonyClient())

	resp, body := sendJSON(t, app, http.MethodPost, "/api/leads/00000000-0000-0000-0000-000000000009/call", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "PERSISTENCE_UNAVAILABLE", decodeAPIResponse(t, body).Error.Code)
}

func TestCallHandlerExportCallLedger(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		app := newTestApp(testDB.DB, services.NewMockTelephonyClient())
		fixtures := testingutil.NewTestFixtures(testDB)

		lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
		require.NoError(t, err)
		_, err = fixtures.CreateCallRecord(lead, "CA-export-1", models.CallDispositionCompleted)
		require.NoError(t, err)

		t.Run("DownloadsWorkbook", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/calls/export?leadId="+lead.UUID.String(), nil)
			resp, body := do(t, app, req)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
			assert.Equal(t, "attachment; filename=call-ledger-"+lead.UUID.String()+".xlsx", resp.Header.Get(fiber.HeaderContentDisposition))

			f, err := excelize.OpenReader(bytes.NewReader([]byte(body)))
			require.NoError(t, err)
			defer f.Close()
			rows, err := f.GetRows("Calls")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "CA-export-1", rows[1][0])
		})

		t.Run("UnknownLead", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/calls/export?leadId=00000000-0000-0000-0000-000000000004", nil)
			resp, body := do(t, app, req)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "LEAD_NOT_FOUND", decodeAPIResponse(t, body).Error.Code)
		})

		return nil
	})
	require.NoError(t, err)
}
