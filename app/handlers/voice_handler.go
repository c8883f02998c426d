package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/app/services"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
)

// VoiceHandlerInterface defines the telephony provider's webhooks
type VoiceHandlerInterface interface {
	Inbound(c fiber.Ctx) error
	Outbound(c fiber.Ctx) error
	Objection(c fiber.Ctx) error
	Continue(c fiber.Ctx) error
	Status(c fiber.Ctx) error
}

// VoiceHandler renders TwiML for conversation webhooks and acknowledges status callbacks
type VoiceHandler struct {
	session businessflow.CallSessionFlow
	status  businessflow.CallStatusFlow
	timeout time.Duration
	logger  *zap.Logger
}

func NewVoiceHandler(session businessflow.CallSessionFlow, status businessflow.CallStatusFlow, timeout time.Duration, logger *zap.Logger) VoiceHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoiceHandler{session: session, status: status, timeout: timeout, logger: logger}
}

// Inbound answers a call placed to the academy
// @Router /api/voice/inbound [post]
func (h *VoiceHandler) Inbound(c fiber.Ctx) error {
	return h.reply(c, businessflow.EndpointInbound, func(ctx context.Context) *dto.VoiceReply {
		return h.session.HandleInbound(ctx, dto.InboundVoiceRequest{
			CallSid: param(c, "CallSid"),
			From:    param(c, "From"),
			Digits:  param(c, "Digits"),
			LeadID:  param(c, "leadId"),
			Node:    param(c, "node"),
		})
	})
}

// Outbound returns the opening of a call placed by the call initiator
// @Router /api/voice/outbound [get]
func (h *VoiceHandler) Outbound(c fiber.Ctx) error {
	return h.reply(c, businessflow.EndpointOutbound, func(ctx context.Context) *dto.VoiceReply {
		return h.session.HandleOutbound(ctx, dto.OutboundVoiceRequest{
			CallSid:  param(c, "CallSid"),
			LeadID:   param(c, "leadId"),
			ScriptID: param(c, "scriptId"),
		})
	})
}

// Objection enters the objection sub-dialogue
// @Router /api/voice/objection [post]
func (h *VoiceHandler) Objection(c fiber.Ctx) error {
	return h.reply(c, businessflow.EndpointObjection, func(ctx context.Context) *dto.VoiceReply {
		return h.session.HandleObjection(ctx, dto.ObjectionVoiceRequest{
			CallSid:  param(c, "CallSid"),
			LeadID:   param(c, "leadId"),
			ScriptID: param(c, "scriptId"),
			Attempt:  attempt(c),
		})
	})
}

// Continue handles the result of a gather
// @Router /api/voice/continue [post]
func (h *VoiceHandler) Continue(c fiber.Ctx) error {
	return h.reply(c, businessflow.EndpointContinue, func(ctx context.Context) *dto.VoiceReply {
		return h.session.HandleContinue(ctx, dto.ContinueVoiceRequest{
			CallSid:      param(c, "CallSid"),
			LeadID:       param(c, "leadId"),
			ScriptID:     param(c, "scriptId"),
			Node:         param(c, "node"),
			SpeechResult: param(c, "SpeechResult"),
			Digits:       param(c, "Digits"),
			Attempt:      attempt(c),
		})
	})
}

// Status records a call status callback
// @Produce json
// @Success 200 {object} dto.CallStatusResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/voice/status [post]
func (h *VoiceHandler) Status(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, businessflow.VoicePathStatus, h.timeout)
	defer cancel()

	resp, err := h.status.HandleStatus(ctx, dto.CallStatusRequest{
		CallSid:      param(c, "CallSid"),
		CallStatus:   param(c, "CallStatus"),
		RecordingURL: param(c, "RecordingUrl"),
		CallDuration: param(c, "CallDuration"),
		Direction:    param(c, "Direction"),
		LeadID:       param(c, "leadId"),
	})
	if err != nil {
		h.logger.Error("Status callback failed", zap.String("call_sid", param(c, "CallSid")), zap.Error(err))
		if businessflow.IsPersistenceUnavailable(err) {
			return errorResponse(c, fiber.StatusServiceUnavailable, "Call ledger unavailable", "PERSISTENCE_UNAVAILABLE", nil)
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to record call status", "CALL_STATUS_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// reply runs fn and writes its markup. A panic still produces the offline apology.
func (h *VoiceHandler) reply(c fiber.Ctx, endpoint string, fn func(ctx context.Context) *dto.VoiceReply) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Voice webhook panicked",
				zap.String("endpoint", endpoint),
				zap.String("path", c.Path()),
				zap.Any("panic", r))
			err = writeTwiML(c, h.session.OfflineReply(endpoint))
		}
	}()

	ctx, cancel := requestContext(c, c.Path(), h.timeout)
	defer cancel()

	r := fn(ctx)
	if r == nil {
		r = h.session.OfflineReply(endpoint)
	}
	return writeTwiML(c, r)
}

func writeTwiML(c fiber.Ctx, r *dto.VoiceReply) error {
	c.Set(fiber.HeaderContentType, services.TwiMLContentType)
	return c.Status(r.StatusCode).SendString(r.Body)
}

// param reads a webhook parameter from the query string, then from the form body
func param(c fiber.Ctx, key string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return c.FormValue(key)
}

func attempt(c fiber.Ctx) int {
	n, err := strconv.Atoi(param(c, "attempt"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
