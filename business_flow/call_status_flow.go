package businessflow

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	"github.com/victorycadets/admissions-agent/utils"
)

// ProviderCallStatus is a call status string sent by the telephony provider
type ProviderCallStatus string

const (
	ProviderCallQueued     ProviderCallStatus = "queued"
	ProviderCallInitiated  ProviderCallStatus = "initiated"
	ProviderCallRinging    ProviderCallStatus = "ringing"
	ProviderCallInProgress ProviderCallStatus = "in-progress"
	ProviderCallCompleted  ProviderCallStatus = "completed"
	ProviderCallBusy       ProviderCallStatus = "busy"
	ProviderCallNoAnswer   ProviderCallStatus = "no-answer"
	ProviderCallFailed     ProviderCallStatus = "failed"
	ProviderCallCanceled   ProviderCallStatus = "canceled"
)

// ProviderCallStatuses lists every status the provider documents
var ProviderCallStatuses = []ProviderCallStatus{
	ProviderCallQueued, ProviderCallInitiated, ProviderCallRinging, ProviderCallInProgress,
	ProviderCallCompleted, ProviderCallBusy, ProviderCallNoAnswer, ProviderCallFailed, ProviderCallCanceled,
}

// providerDispositions reduces provider statuses to ledger dispositions.
// Adding a status to ProviderCallStatuses without a row here fails the reducer tests.
var providerDispositions = map[ProviderCallStatus]models.CallDisposition{
	ProviderCallQueued:     models.CallDispositionPending,
	ProviderCallInitiated:  models.CallDispositionPending,
	ProviderCallRinging:    models.CallDispositionPending,
	ProviderCallInProgress: models.CallDispositionPending,
	ProviderCallCompleted:  models.CallDispositionCompleted,
	ProviderCallBusy:       models.CallDispositionNoAnswer,
	ProviderCallNoAnswer:   models.CallDispositionNoAnswer,
	ProviderCallFailed:     models.CallDispositionFailed,
	ProviderCallCanceled:   models.CallDispositionFailed,
}

// ReduceCallStatus maps a raw provider status to a disposition. Unknown statuses stay PENDING.
func ReduceCallStatus(raw string) models.CallDisposition {
	if d, ok := providerDispositions[ProviderCallStatus(strings.ToLower(strings.TrimSpace(raw)))]; ok {
		return d
	}
	return models.CallDispositionPending
}

// CallStatusFlow reduces provider status callbacks into the call ledger
type CallStatusFlow interface {
	HandleStatus(ctx context.Context, req dto.CallStatusRequest) (*dto.CallStatusResponse, error)
}

type CallStatusFlowImpl struct {
	leadRepo repository.LeadRepository
	callRepo repository.CallRecordRepository
	db       *gorm.DB
	logger   *zap.Logger
}

func NewCallStatusFlow(
	leadRepo repository.LeadRepository,
	callRepo repository.CallRecordRepository,
	db *gorm.DB,
	logger *zap.Logger,
) CallStatusFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallStatusFlowImpl{leadRepo: leadRepo, callRepo: callRepo, db: db, logger: logger}
}

// HandleStatus upserts the ledger row keyed by call sid. Replays converge on the same row.
// Without a lead id only an already known ledger row is refined and no lead is touched.
func (f *CallStatusFlowImpl) HandleStatus(ctx context.Context, req dto.CallStatusRequest) (result *dto.CallStatusResponse, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("CALL_STATUS_FAILED", "Failed to record call status", err)
		}
	}()

	ok := &dto.CallStatusResponse{OK: true}
	if f.db == nil {
		return ok, nil
	}
	if req.CallSid == "" {
		f.logger.Warn("Status callback without call sid", zap.String("status", req.CallStatus))
		return ok, nil
	}

	disposition := ReduceCallStatus(req.CallStatus)
	callStatusCallbacksTotal.WithLabelValues(string(disposition)).Inc()

	update := repository.CallStatusUpdate{
		CallSid:         req.CallSid,
		Direction:       models.ParseCallDirection(req.Direction),
		Disposition:     disposition,
		RecordingURL:    utils.NonEmptyPtr(req.RecordingURL),
		DurationSeconds: parseDuration(req.CallDuration),
		At:              utils.UTCNow(),
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if req.LeadID == "" {
			existing, err := f.callRepo.ByCallSid(txCtx, req.CallSid)
			if err != nil {
				return err
			}
			if existing == nil {
				return nil
			}
			update.Direction = existing.Direction
			return f.callRepo.UpsertStatus(txCtx, update)
		}

		lead, err := f.leadRepo.ByUUID(txCtx, req.LeadID)
		if err != nil {
			return err
		}
		if lead == nil {
			f.logger.Warn("Status callback for unknown lead",
				zap.String("lead_id", req.LeadID),
				zap.String("call_sid", req.CallSid))
			return nil
		}

		update.LeadID = &lead.ID
		if err := f.callRepo.UpsertStatus(txCtx, update); err != nil {
			return err
		}
		if disposition == models.CallDispositionCompleted {
			return f.leadRepo.TouchLastContacted(txCtx, lead.ID, update.At)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}

	f.logger.Info("Call status recorded",
		zap.String("call_sid", req.CallSid),
		zap.String("status", req.CallStatus),
		zap.String("disposition", string(disposition)))
	return ok, nil
}

func parseDuration(raw string) *int {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
