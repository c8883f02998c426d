package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	"github.com/victorycadets/admissions-agent/utils"
)

const (
	callLedgerSheet     = "Calls"
	callLedgerExportMax = 10000
	staleSweepBatchSize = 200
)

var callLedgerHeader = []any{
	"Call SID", "Lead ID", "Lead Name", "Phone Number", "Direction", "Disposition",
	"Started At", "Ended At", "Duration (s)", "Recording URL", "Transcript", "Outcome Notes",
}

// CallLedgerFlow reports on and maintains the call ledger
type CallLedgerFlow interface {
	ExportCallLedger(ctx context.Context, leadID string) (*dto.CallLedgerExport, error)
	FailStalePendingCalls(ctx context.Context, maxAge time.Duration) (int, error)
}

type CallLedgerFlowImpl struct {
	leadRepo repository.LeadRepository
	callRepo repository.CallRecordRepository
	db       *gorm.DB
	logger   *zap.Logger
}

func NewCallLedgerFlow(
	leadRepo repository.LeadRepository,
	callRepo repository.CallRecordRepository,
	db *gorm.DB,
	logger *zap.Logger,
) CallLedgerFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallLedgerFlowImpl{leadRepo: leadRepo, callRepo: callRepo, db: db, logger: logger}
}

// ExportCallLedger renders call records as an xlsx workbook, newest first.
// An empty leadID exports the whole ledger.
func (f *CallLedgerFlowImpl) ExportCallLedger(ctx context.Context, leadID string) (result *dto.CallLedgerExport, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("EXPORT_CALL_LEDGER_FAILED", "Failed to export call ledger", err)
		}
	}()

	if f.db == nil {
		return nil, ErrPersistenceUnavailable
	}

	filter := models.CallRecordFilter{}
	filename := "call-ledger.xlsx"
	leads := map[uint]*models.Lead{}
	if leadID != "" {
		lead, err := f.leadRepo.ByUUID(ctx, leadID)
		if err != nil {
			return nil, unavailable(err)
		}
		if lead == nil {
			return nil, ErrLeadNotFound
		}
		filter.LeadID = &lead.ID
		leads[lead.ID] = lead
		filename = fmt.Sprintf("call-ledger-%s.xlsx", lead.UUID.String())
	}

	records, err := f.callRepo.ByFilter(ctx, filter, "started_at DESC", callLedgerExportMax, 0)
	if err != nil {
		return nil, unavailable(err)
	}

	xf := excelize.NewFile()
	defer xf.Close()
	if err := xf.SetSheetName("Sheet1", callLedgerSheet); err != nil {
		return nil, err
	}
	if err := xf.SetSheetRow(callLedgerSheet, "A1", &callLedgerHeader); err != nil {
		return nil, err
	}

	for i, r := range records {
		var lead *models.Lead
		if r.LeadID != nil {
			lead, err = f.cachedLead(ctx, leads, *r.LeadID)
			if err != nil {
				return nil, unavailable(err)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := callLedgerRow(r, lead)
		if err := xf.SetSheetRow(callLedgerSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := xf.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &dto.CallLedgerExport{Filename: filename, Content: buf.Bytes(), Rows: len(records)}, nil
}

func (f *CallLedgerFlowImpl) cachedLead(ctx context.Context, cache map[uint]*models.Lead, id uint) (*models.Lead, error) {
	if lead, ok := cache[id]; ok {
		return lead, nil
	}
	lead, err := f.leadRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = lead
	return lead, nil
}

func callLedgerRow(r *models.CallRecord, lead *models.Lead) []any {
	leadID, leadName, phone := "", "", ""
	if lead != nil {
		leadID, leadName, phone = lead.UUID.String(), lead.FullName, lead.PhoneNumber
	}
	var duration any = ""
	if r.DurationSeconds != nil {
		duration = *r.DurationSeconds
	}
	return []any{
		r.CallSid,
		leadID,
		leadName,
		phone,
		string(r.Direction),
		string(r.Disposition),
		utils.FormatTime(r.StartedAt),
		utils.FormatTimePtr(r.EndedAt),
		duration,
		utils.Deref(r.RecordingURL),
		utils.Deref(r.Transcript),
		utils.Deref(r.OutcomeNotes),
	}
}

// FailStalePendingCalls moves calls that never received a final status callback to FAILED
func (f *CallLedgerFlowImpl) FailStalePendingCalls(ctx context.Context, maxAge time.Duration) (int, error) {
	if f.db == nil {
		return 0, nil
	}

	records, err := f.callRepo.ListStalePending(ctx, utils.UTCNowAdd(-maxAge), staleSweepBatchSize)
	if err != nil {
		return 0, NewBusinessError("SWEEP_STALE_CALLS_FAILED", "Failed to list stale calls", err)
	}

	failed := 0
	for _, r := range records {
		updated, err := f.callRepo.MarkFailedIfPending(ctx, r.ID, noteStaleCallFailure)
		if err != nil {
			f.logger.Error("Failed to expire stale call", zap.String("call_sid", r.CallSid), zap.Error(err))
			continue
		}
		if updated {
			failed++
			staleCallsFailedTotal.Inc()
		}
	}
	return failed, nil
}
