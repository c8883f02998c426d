package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/victorycadets/admissions-agent/app/dto"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
)

// AgentScriptHandlerInterface defines the sales script endpoints
type AgentScriptHandlerInterface interface {
	GetDefault(c fiber.Ctx) error
	Update(c fiber.Ctx) error
}

type AgentScriptHandler struct {
	flow      businessflow.AgentScriptFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAgentScriptHandler(flow businessflow.AgentScriptFlow, logger *zap.Logger) AgentScriptHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentScriptHandler{flow: flow, validator: validator.New(), logger: logger}
}

// GetDefault returns the default script, creating it on first use
// @Summary Get default script
// @Tags Scripts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AgentScriptDTO}
// @Router /api/scripts/default [get]
func (h *AgentScriptHandler) GetDefault(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, "/api/scripts/default", defaultRequestTimeout)
	defer cancel()

	script, err := h.flow.GetDefaultScript(ctx)
	if err != nil {
		if businessflow.IsPersistenceUnavailable(err) {
			return errorResponse(c, fiber.StatusServiceUnavailable, "Database unavailable", "PERSISTENCE_UNAVAILABLE", nil)
		}
		h.logger.Error("Get default script failed", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load default script", "GET_DEFAULT_SCRIPT_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Default script retrieved successfully", script)
}

// Update applies a partial update to a script
// @Summary Update script
// @Tags Scripts
// @Accept json
// @Produce json
// @Param id path string true "Script UUID"
// @Param request body dto.UpdateAgentScriptRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.AgentScriptDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/scripts/{id} [patch]
func (h *AgentScriptHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateAgentScriptRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := requestContext(c, "/api/scripts/:id", defaultRequestTimeout)
	defer cancel()

	script, err := h.flow.UpdateScript(ctx, c.Params("id"), req)
	if err != nil {
		switch {
		case businessflow.IsScriptNotFound(err):
			return errorResponse(c, fiber.StatusNotFound, "Script not found", "SCRIPT_NOT_FOUND", nil)
		case businessflow.IsScriptUpdateEmpty(err):
			return errorResponse(c, fiber.StatusBadRequest, "At least one field must be provided", "EMPTY_UPDATE", nil)
		case businessflow.IsPersistenceUnavailable(err):
			return errorResponse(c, fiber.StatusServiceUnavailable, "Database unavailable", "PERSISTENCE_UNAVAILABLE", nil)
		}
		h.logger.Error("Update script failed", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to update script", "UPDATE_SCRIPT_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Script updated successfully", script)
}
