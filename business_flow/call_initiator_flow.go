package businessflow

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/app/services"
	"github.com/victorycadets/admissions-agent/config"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
)

// CallInitiatorFlow places outbound calls to leads
type CallInitiatorFlow interface {
	InitiateCall(ctx context.Context, leadID string, req dto.InitiateCallRequest) (*dto.InitiateCallResponse, error)
}

type CallInitiatorFlowImpl struct {
	leadRepo   repository.LeadRepository
	scriptRepo repository.AgentScriptRepository
	callRepo   repository.CallRecordRepository
	db         *gorm.DB
	telephony  services.TelephonyClient
	cfg        config.VoiceConfig
	logger     *zap.Logger
}

func NewCallInitiatorFlow(
	leadRepo repository.LeadRepository,
	scriptRepo repository.AgentScriptRepository,
	callRepo repository.CallRecordRepository,
	db *gorm.DB,
	telephony services.TelephonyClient,
	cfg config.VoiceConfig,
	logger *zap.Logger,
) CallInitiatorFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallInitiatorFlowImpl{
		leadRepo:   leadRepo,
		scriptRepo: scriptRepo,
		callRepo:   callRepo,
		db:         db,
		telephony:  telephony,
		cfg:        cfg,
		logger:     logger,
	}
}

// InitiateCall dials the lead with the requested script (or the default one) and records a PENDING ledger row
func (f *CallInitiatorFlowImpl) InitiateCall(ctx context.Context, leadID string, req dto.InitiateCallRequest) (result *dto.InitiateCallResponse, err error) {
	defer func() {
		if err != nil {
			callsInitiatedTotal.WithLabelValues("error").Inc()
			err = NewBusinessError("INITIATE_CALL_FAILED", "Failed to place outbound call", err)
		}
	}()

	if leadID == "" {
		return nil, ErrLeadIDRequired
	}
	if f.db == nil {
		return nil, ErrPersistenceUnavailable
	}

	lead, err := f.leadRepo.ByUUID(ctx, leadID)
	if err != nil {
		return nil, unavailable(err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	if f.cfg.CallerID == "" {
		return nil, ErrCallerIDNotConfigured
	}
	if f.cfg.PublicBaseURL == "" {
		return nil, ErrBaseURLNotConfigured
	}

	script, err := f.pickScript(ctx, req.ScriptID)
	if err != nil {
		return nil, err
	}

	leadUUID := lead.UUID.String()
	scriptUUID := script.UUID.String()
	placed, err := f.telephony.PlaceCall(ctx, services.PlaceCallRequest{
		To:             lead.PhoneNumber,
		From:           f.cfg.CallerID,
		URL:            f.cfg.PublicBaseURL + VoicePathOutbound + "?" + url.Values{"leadId": {leadUUID}, "scriptId": {scriptUUID}}.Encode(),
		Method:         "GET",
		StatusCallback: f.cfg.PublicBaseURL + VoicePathStatus + "?" + url.Values{"leadId": {leadUUID}}.Encode(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTelephonyFailed, err)
	}

	// The call is already ringing. A ledger failure here is healed by the first status callback.
	if err := f.callRepo.SavePending(ctx, &models.CallRecord{
		CallSid:   placed.Sid,
		LeadID:    &lead.ID,
		Direction: models.CallDirectionOutbound,
	}); err != nil {
		f.logger.Error("Failed to record pending call",
			zap.String("call_sid", placed.Sid),
			zap.String("lead_id", leadUUID),
			zap.Error(err))
	}

	callsInitiatedTotal.WithLabelValues("placed").Inc()
	f.logger.Info("Outbound call placed",
		zap.String("call_sid", placed.Sid),
		zap.String("lead_id", leadUUID),
		zap.String("script_id", scriptUUID))

	return &dto.InitiateCallResponse{
		Message:  "Call placed successfully",
		Sid:      placed.Sid,
		LeadID:   leadUUID,
		ScriptID: scriptUUID,
		Status:   placed.Status,
	}, nil
}

func (f *CallInitiatorFlowImpl) pickScript(ctx context.Context, scriptID *string) (*models.AgentScript, error) {
	if scriptID != nil && *scriptID != "" {
		script, err := f.scriptRepo.ByUUID(ctx, *scriptID)
		if err != nil {
			return nil, unavailable(err)
		}
		if script == nil {
			return nil, ErrScriptNotFound
		}
		return script, nil
	}
	script, err := f.scriptRepo.EnsureDefault(ctx, models.DefaultAgentScript())
	if err != nil {
		return nil, unavailable(err)
	}
	return script, nil
}
