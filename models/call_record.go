package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/utils"
)

// CallDirection tells who dialed
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "INBOUND"
	CallDirectionOutbound CallDirection = "OUTBOUND"
)

// ParseCallDirection maps the provider's Direction field ("inbound", "outbound-api", "outbound-dial").
// Anything not starting with "inbound" counts as outbound.
func ParseCallDirection(raw string) CallDirection {
	if strings.HasPrefix(strings.ToLower(raw), "inbound") {
		return CallDirectionInbound
	}
	return CallDirectionOutbound
}

// CallDisposition is the outcome classification of one call attempt
type CallDisposition string

const (
	CallDispositionPending   CallDisposition = "PENDING"
	CallDispositionCompleted CallDisposition = "COMPLETED"
	CallDispositionFailed    CallDisposition = "FAILED"
	CallDispositionNoAnswer  CallDisposition = "NO_ANSWER"
)

// IsFinal reports whether the disposition can no longer change
func (d CallDisposition) IsFinal() bool {
	return d != CallDispositionPending
}

// CallRecord is one call attempt in the call ledger
// Table: call_records
// Keyed by the provider call sid, which doubles as the idempotency token for status callbacks
// Disposition only moves forward: PENDING -> COMPLETED | FAILED | NO_ANSWER
type CallRecord struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	CallSid string `gorm:"size:64;not null;uniqueIndex:uk_call_records_call_sid" json:"call_sid"`
	LeadID  *uint  `gorm:"index:idx_call_records_lead_id" json:"lead_id,omitempty"`

	Direction       CallDirection   `gorm:"size:16;not null" json:"direction"`
	Disposition     CallDisposition `gorm:"size:16;not null;index:idx_call_records_disposition" json:"disposition"`
	RecordingURL    *string         `gorm:"type:text" json:"recording_url,omitempty"`
	Transcript      *string         `gorm:"type:text" json:"transcript,omitempty"`
	OutcomeNotes    *string         `gorm:"type:text" json:"outcome_notes,omitempty"`
	DurationSeconds *int            `json:"duration_seconds,omitempty"`

	StartedAt time.Time  `gorm:"not null;index:idx_call_records_started_at" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`

	// Relations
	Lead *Lead `gorm:"foreignKey:LeadID;references:ID;constraint:OnDelete:SET NULL" json:"lead,omitempty"`
}

func (CallRecord) TableName() string { return "call_records" }

// BeforeCreate normalizes timestamps and the default disposition
func (c *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if c.Disposition == "" {
		c.Disposition = CallDispositionPending
	}
	if c.Direction == "" {
		c.Direction = CallDirectionOutbound
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// CallRecordFilter represents filter criteria for call ledger queries
type CallRecordFilter struct {
	ID            *uint
	CallSid       *string
	LeadID        *uint
	Direction     *CallDirection
	Disposition   *CallDisposition
	StartedAfter  *time.Time
	StartedBefore *time.Time
}
