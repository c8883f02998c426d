package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/app/handlers"
	"github.com/victorycadets/admissions-agent/app/services"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
	"github.com/victorycadets/admissions-agent/config"
	"github.com/victorycadets/admissions-agent/repository"
)

func testVoiceConfig() config.VoiceConfig {
	return config.VoiceConfig{
		PublicBaseURL:      "https://agent.example.com",
		CallerID:           "+15005550006",
		RoutingNumber:      "+911100000000",
		SpeechVoice:        "Polly.Aditi",
		SpeechLanguage:     "en-IN",
		AffirmWords:        []string{"yes", "sure", "ok", "schedule", "book"},
		DeclineWords:       []string{"not interested", "stop", "no"},
		WebhookTimeout:     5 * time.Second,
		MaxObjectionRounds: 2,
	}
}

// newTestApp wires every handler against db the same way main does
func newTestApp(db *gorm.DB, telephony services.TelephonyClient) *fiber.App {
	cfg := testVoiceConfig()
	leadRepo := repository.NewLeadRepository(db)
	scriptRepo := repository.NewAgentScriptRepository(db)
	callRepo := repository.NewCallRecordRepository(db)
	engine := businessflow.NewDialogueEngine(
		businessflow.EngineConfig{RoutingNumber: cfg.RoutingNumber, MaxObjectionRounds: cfg.MaxObjectionRounds},
		businessflow.NewIntentClassifier(cfg.AffirmWords, cfg.DeclineWords),
	)

	voice := handlers.NewVoiceHandler(
		businessflow.NewCallSessionFlow(leadRepo, scriptRepo, callRepo, db, engine, nil, cfg, nil),
		businessflow.NewCallStatusFlow(leadRepo, callRepo, db, nil),
		cfg.WebhookTimeout,
		nil,
	)
	call := handlers.NewCallHandler(
		businessflow.NewCallInitiatorFlow(leadRepo, scriptRepo, callRepo, db, telephony, cfg, nil),
		businessflow.NewCallLedgerFlow(leadRepo, callRepo, db, nil),
		nil,
	)
	script := handlers.NewAgentScriptHandler(businessflow.NewAgentScriptFlow(scriptRepo, db), nil)
	health := handlers.NewHealthHandler(db, nil, "test")

	app := fiber.New()
	app.Post(businessflow.VoicePathInbound, voice.Inbound)
	app.Get(businessflow.VoicePathOutbound, voice.Outbound)
	app.Post(businessflow.VoicePathObjection, voice.Objection)
	app.Post(businessflow.VoicePathContinue, voice.Continue)
	app.Post(businessflow.VoicePathStatus, voice.Status)
	app.Post("/api/leads/:id/call", call.InitiateCall)
	app.Get("/api/calls/export", call.ExportCallLedger)
	app.Get("/api/scripts/default", script.GetDefault)
	app.Patch("/api/scripts/:id", script.Update)
	app.Get("/api/health", health.Check)
	return app
}

func postForm(t *testing.T, app *fiber.App, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return do(t, app, req)
}

func sendJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(raw)
}

// decodedAPIResponse mirrors dto.APIResponse with Error typed as the
// dto.ErrorDetail that errorResponse always emits.
type decodedAPIResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    any             `json:"data,omitempty"`
	Error   dto.ErrorDetail `json:"error,omitempty"`
}

func decodeAPIResponse(t *testing.T, body string) decodedAPIResponse {
	t.Helper()
	var out decodedAPIResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}
