// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/victorycadets/admissions-agent/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	ByPhone(ctx context.Context, phone string) (*models.Lead, error)
	// SaveIfPhoneAbsent inserts lead unless one with the same phone exists, and returns the stored row.
	SaveIfPhoneAbsent(ctx context.Context, lead *models.Lead) (*models.Lead, bool, error)
	UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus) error
	AppendNote(ctx context.Context, leadID uint, note string) error
	TouchLastContacted(ctx context.Context, leadID uint, at time.Time) error
}

// AgentScriptRepository defines operations for agent scripts
type AgentScriptRepository interface {
	Repository[models.AgentScript, models.AgentScriptFilter]
	ByUUID(ctx context.Context, uuid string) (*models.AgentScript, error)
	Default(ctx context.Context) (*models.AgentScript, error)
	EnsureDefault(ctx context.Context, seed *models.AgentScript) (*models.AgentScript, error)
	Update(ctx context.Context, script *models.AgentScript) error
}

// CallStatusUpdate is one reduced status callback
type CallStatusUpdate struct {
	CallSid         string
	LeadID          *uint
	Direction       models.CallDirection
	Disposition     models.CallDisposition
	RecordingURL    *string
	DurationSeconds *int
	At              time.Time
}

// CallOutcome is a conversation outcome recorded against a call
type CallOutcome struct {
	CallSid    string
	LeadID     *uint
	Direction  models.CallDirection
	Transcript *string
	Note       string
}

// CallRecordRepository defines operations for the call ledger
type CallRecordRepository interface {
	Repository[models.CallRecord, models.CallRecordFilter]
	ByCallSid(ctx context.Context, callSid string) (*models.CallRecord, error)
	SavePending(ctx context.Context, record *models.CallRecord) error
	UpsertStatus(ctx context.Context, update CallStatusUpdate) error
	UpsertOutcome(ctx context.Context, outcome CallOutcome) error
	ListStalePending(ctx context.Context, startedBefore time.Time, limit int) ([]*models.CallRecord, error)
	MarkFailedIfPending(ctx context.Context, id uint, note string) (bool, error)
}
