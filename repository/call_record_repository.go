package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/utils"
)

// CallRecordRepositoryImpl implements CallRecordRepository interface
type CallRecordRepositoryImpl struct {
	*BaseRepository[models.CallRecord, models.CallRecordFilter]
}

// NewCallRecordRepository creates a new call ledger repository
func NewCallRecordRepository(db *gorm.DB) CallRecordRepository {
	return &CallRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CallRecord, models.CallRecordFilter](db),
	}
}

// ByCallSid retrieves a call record by the provider call identifier
func (r *CallRecordRepositoryImpl) ByCallSid(ctx context.Context, callSid string) (*models.CallRecord, error) {
	callSid = strings.TrimSpace(callSid)
	if callSid == "" {
		return nil, nil
	}

	var record models.CallRecord
	err := r.getDB(ctx).Where("call_sid = ?", callSid).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find call record %s: %w", callSid, err)
	}
	return &record, nil
}

// SavePending inserts a PENDING record at dial time. A status callback that raced
// ahead of the insert already owns the row, so a conflict is not an error.
func (r *CallRecordRepositoryImpl) SavePending(ctx context.Context, record *models.CallRecord) error {
	if record == nil || record.CallSid == "" {
		return errors.New("call sid is required")
	}
	record.Disposition = models.CallDispositionPending

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_sid"}},
			DoUpdates: clause.Assignments(map[string]any{"lead_id": gorm.Expr("COALESCE(call_records.lead_id, excluded.lead_id)")}),
		}).Create(record).Error
		if err != nil {
			return fmt.Errorf("failed to save pending call record: %w", err)
		}
		return nil
	})
}

// UpsertStatus applies a status callback keyed by call sid.
// A final disposition is never replaced, so replays and out-of-order callbacks converge.
func (r *CallRecordRepositoryImpl) UpsertStatus(ctx context.Context, update CallStatusUpdate) error {
	if update.CallSid == "" {
		return errors.New("call sid is required")
	}
	at := update.At
	if at.IsZero() {
		at = utils.UTCNow()
	}

	record := &models.CallRecord{
		CallSid:         update.CallSid,
		LeadID:          update.LeadID,
		Direction:       update.Direction,
		Disposition:     update.Disposition,
		RecordingURL:    update.RecordingURL,
		DurationSeconds: update.DurationSeconds,
		StartedAt:       at,
		UpdatedAt:       at,
	}
	if update.Disposition.IsFinal() {
		record.EndedAt = &at
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "call_sid"}},
			DoUpdates: clause.Assignments(map[string]any{
				"disposition": gorm.Expr("CASE WHEN call_records.disposition = ? THEN excluded.disposition ELSE call_records.disposition END",
					models.CallDispositionPending),
				"recording_url":    gorm.Expr("COALESCE(excluded.recording_url, call_records.recording_url)"),
				"duration_seconds": gorm.Expr("COALESCE(excluded.duration_seconds, call_records.duration_seconds)"),
				"ended_at":         gorm.Expr("COALESCE(call_records.ended_at, excluded.ended_at)"),
				"lead_id":          gorm.Expr("COALESCE(call_records.lead_id, excluded.lead_id)"),
				"updated_at":       gorm.Expr("excluded.updated_at"),
			}),
		}).Create(record).Error
		if err != nil {
			return fmt.Errorf("failed to upsert call status %s: %w", update.CallSid, err)
		}
		return nil
	})
}

// UpsertOutcome records the transcript and appends an outcome note for a call
func (r *CallRecordRepositoryImpl) UpsertOutcome(ctx context.Context, outcome CallOutcome) error {
	if outcome.CallSid == "" {
		return errors.New("call sid is required")
	}
	now := utils.UTCNow()

	record := &models.CallRecord{
		CallSid:      outcome.CallSid,
		LeadID:       outcome.LeadID,
		Direction:    outcome.Direction,
		Disposition:  models.CallDispositionPending,
		Transcript:   outcome.Transcript,
		OutcomeNotes: utils.NonEmptyPtr(outcome.Note),
		StartedAt:    now,
		UpdatedAt:    now,
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "call_sid"}},
			DoUpdates: clause.Assignments(map[string]any{
				"transcript": gorm.Expr("COALESCE(excluded.transcript, call_records.transcript)"),
				"outcome_notes": gorm.Expr(
					"CASE WHEN excluded.outcome_notes IS NULL THEN call_records.outcome_notes "+
						"WHEN call_records.outcome_notes IS NULL OR call_records.outcome_notes = '' THEN excluded.outcome_notes "+
						"ELSE call_records.outcome_notes || ? || excluded.outcome_notes END", notesSeparator),
				"lead_id":    gorm.Expr("COALESCE(call_records.lead_id, excluded.lead_id)"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(record).Error
		if err != nil {
			return fmt.Errorf("failed to upsert call outcome %s: %w", outcome.CallSid, err)
		}
		return nil
	})
}

// ListStalePending lists records still PENDING that started before the given time
func (r *CallRecordRepositoryImpl) ListStalePending(ctx context.Context, startedBefore time.Time, limit int) ([]*models.CallRecord, error) {
	pending := models.CallDispositionPending
	return r.ByFilter(ctx, models.CallRecordFilter{
		Disposition:   &pending,
		StartedBefore: &startedBefore,
	}, "started_at ASC", limit, 0)
}

// MarkFailedIfPending moves a PENDING record to FAILED and appends note.
// It reports false when the record had already reached a final disposition.
func (r *CallRecordRepositoryImpl) MarkFailedIfPending(ctx context.Context, id uint, note string) (bool, error) {
	now := utils.UTCNow()
	var updated bool

	err := r.write(ctx, func(db *gorm.DB) error {
		result := db.Model(&models.CallRecord{}).
			Where("id = ? AND disposition = ?", id, models.CallDispositionPending).
			Updates(map[string]any{
				"disposition": models.CallDispositionFailed,
				"ended_at":    now,
				"updated_at":  now,
				"outcome_notes": gorm.Expr("CASE WHEN outcome_notes IS NULL OR outcome_notes = '' THEN ? ELSE outcome_notes || ? END",
					note, notesSeparator+note),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark call record %d failed: %w", id, result.Error)
		}
		updated = result.RowsAffected > 0
		return nil
	})
	return updated, err
}

// applyFilter applies filter criteria to a GORM query
func (r *CallRecordRepositoryImpl) applyFilter(query *gorm.DB, filter models.CallRecordFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CallSid != nil {
		query = query.Where("call_sid = ?", *filter.CallSid)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Disposition != nil {
		query = query.Where("disposition = ?", *filter.Disposition)
	}
	if filter.StartedAfter != nil {
		query = query.Where("started_at > ?", *filter.StartedAfter)
	}
	if filter.StartedBefore != nil {
		query = query.Where("started_at < ?", *filter.StartedBefore)
	}
	return query
}

// ByFilter retrieves call records based on filter criteria
func (r *CallRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.CallRecordFilter, orderBy string, limit, offset int) ([]*models.CallRecord, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.CallRecord{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var records []*models.CallRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find call records: %w", err)
	}
	return records, nil
}

// Count returns the number of call records matching the filter
func (r *CallRecordRepositoryImpl) Count(ctx context.Context, filter models.CallRecordFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.CallRecord{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any call record matching the filter exists
func (r *CallRecordRepositoryImpl) Exists(ctx context.Context, filter models.CallRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
