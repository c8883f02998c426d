package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/victorycadets/admissions-agent/app/dto"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
)

const callLedgerContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CallHandlerInterface defines the call management endpoints
type CallHandlerInterface interface {
	InitiateCall(c fiber.Ctx) error
	ExportCallLedger(c fiber.Ctx) error
}

// CallHandler places outbound calls and reports on the call ledger
type CallHandler struct {
	initiator businessflow.CallInitiatorFlow
	ledger    businessflow.CallLedgerFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCallHandler(initiator businessflow.CallInitiatorFlow, ledger businessflow.CallLedgerFlow, logger *zap.Logger) CallHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallHandler{
		initiator: initiator,
		ledger:    ledger,
		validator: validator.New(),
		logger:    logger,
	}
}

// InitiateCall dials a lead
// @Summary Place outbound call
// @Tags Calls
// @Accept json
// @Produce json
// @Param id path string true "Lead UUID"
// @Param request body dto.InitiateCallRequest false "Optional script selection"
// @Success 200 {object} dto.APIResponse{data=dto.InitiateCallResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Failure 502 {object} dto.APIResponse
// @Router /api/leads/{id}/call [post]
func (h *CallHandler) InitiateCall(c fiber.Ctx) error {
	leadID := c.Params("id")
	if leadID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Lead id is required", "LEAD_ID_REQUIRED", nil)
	}

	var req dto.InitiateCallRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := requestContext(c, "/api/leads/:id/call", 20*time.Second)
	defer cancel()

	result, err := h.initiator.InitiateCall(ctx, leadID, req)
	if err != nil {
		switch {
		case businessflow.IsLeadNotFound(err):
			return errorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		case businessflow.IsScriptNotFound(err):
			return errorResponse(c, fiber.StatusNotFound, "Script not found", "SCRIPT_NOT_FOUND", nil)
		case businessflow.IsConfigurationError(err):
			h.logger.Error("Outbound calling is not configured", zap.Error(err))
			return errorResponse(c, fiber.StatusInternalServerError, "Outbound calling is not configured", "CONFIGURATION_ERROR", err.Error())
		case businessflow.IsTelephonyFailed(err):
			h.logger.Error("Telephony provider rejected call", zap.String("lead_id", leadID), zap.Error(err))
			return errorResponse(c, fiber.StatusBadGateway, "Telephony provider rejected the call", "TELEPHONY_FAILED", nil)
		case businessflow.IsPersistenceUnavailable(err):
			return errorResponse(c, fiber.StatusServiceUnavailable, "Database unavailable", "PERSISTENCE_UNAVAILABLE", nil)
		}
		h.logger.Error("Initiate call failed", zap.String("lead_id", leadID), zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to place call", "INITIATE_CALL_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportCallLedger downloads the call ledger as a workbook, optionally for one lead
// @Summary Export call ledger
// @Tags Calls
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param leadId query string false "Lead UUID"
// @Success 200 {file} file
// @Failure 404 {object} dto.APIResponse
// @Router /api/calls/export [get]
func (h *CallHandler) ExportCallLedger(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, "/api/calls/export", 60*time.Second)
	defer cancel()

	export, err := h.ledger.ExportCallLedger(ctx, c.Query("leadId"))
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsPersistenceUnavailable(err) {
			return errorResponse(c, fiber.StatusServiceUnavailable, "Database unavailable", "PERSISTENCE_UNAVAILABLE", nil)
		}
		h.logger.Error("Call ledger export failed", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "DOWNLOAD_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, callLedgerContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+export.Filename)
	return c.Send(export.Content)
}
