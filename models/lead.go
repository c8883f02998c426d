// Package models contains domain entities for leads, agent scripts and the call ledger
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/utils"
)

// LeadStatus is the sales lifecycle of a lead
type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "NEW"
	LeadStatusContacted     LeadStatus = "CONTACTED"
	LeadStatusFollowUp      LeadStatus = "FOLLOW_UP"
	LeadStatusDemoScheduled LeadStatus = "DEMO_SCHEDULED"
	LeadStatusDemoCompleted LeadStatus = "DEMO_COMPLETED"
	LeadStatusEnrolled      LeadStatus = "ENROLLED"
	LeadStatusLost          LeadStatus = "LOST"
)

// leadStatusRank orders the forward lifecycle. LOST sits outside the chain.
var leadStatusRank = map[LeadStatus]int{
	LeadStatusNew:           0,
	LeadStatusContacted:     1,
	LeadStatusFollowUp:      2,
	LeadStatusDemoScheduled: 3,
	LeadStatusDemoCompleted: 4,
	LeadStatusEnrolled:      5,
}

// Valid reports whether s is a known status
func (s LeadStatus) Valid() bool {
	if s == LeadStatusLost {
		return true
	}
	_, ok := leadStatusRank[s]
	return ok
}

// IsTerminal reports whether no further lifecycle progress is expected
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusEnrolled || s == LeadStatusLost
}

// CanTransitionTo reports whether next is a forward move in the lifecycle.
// LOST is reachable from any non-terminal status. Re-applying the same status is allowed.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == LeadStatusLost {
		return true
	}
	from, okFrom := leadStatusRank[s]
	to, okTo := leadStatusRank[next]
	return okFrom && okTo && to > from
}

// LeadSource is the acquisition channel of a lead
type LeadSource string

const (
	LeadSourceFacebook    LeadSource = "FACEBOOK"
	LeadSourceGoogleAds   LeadSource = "GOOGLE_ADS"
	LeadSourceInboundCall LeadSource = "INBOUND_CALL"
	LeadSourceWebsiteForm LeadSource = "WEBSITE_FORM"
	LeadSourceImported    LeadSource = "IMPORTED"
	LeadSourceManual      LeadSource = "MANUAL"
)

// TargetExam is the entrance exam a student prepares for
type TargetExam string

const (
	TargetExamSainikSchool            TargetExam = "SAINIK_SCHOOL"
	TargetExamRashtriyaMilitarySchool TargetExam = "RASHTRIYA_MILITARY_SCHOOL"
	TargetExamNavodaya                TargetExam = "NAVODAYA"
	TargetExamOther                   TargetExam = "OTHER"
)

// Lead represents a prospective student's family contact
// Table: leads
// Unique by phone_number, which is the natural key for inbound callers
// Notes is an append-only newline-joined conversation log
// Tags stored as JSON text
type Lead struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`

	FullName     string     `gorm:"size:255;not null" json:"full_name"`
	PhoneNumber  string     `gorm:"size:32;not null;uniqueIndex:uk_leads_phone_number" json:"phone_number"`
	Email        *string    `gorm:"size:255" json:"email,omitempty"`
	StudentName  *string    `gorm:"size:255" json:"student_name,omitempty"`
	StudentClass *string    `gorm:"size:32" json:"student_class,omitempty"`
	TargetExam   TargetExam `gorm:"size:32;not null" json:"target_exam"`
	Source       LeadSource `gorm:"size:32;not null;index:idx_leads_source" json:"source"`
	SourceLeadID *string    `gorm:"size:128" json:"source_lead_id,omitempty"`
	Status       LeadStatus `gorm:"size:32;not null;index:idx_leads_status" json:"status"`
	Tags         []string   `gorm:"serializer:json;type:text" json:"tags"`
	Notes        *string    `gorm:"type:text" json:"notes,omitempty"`

	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

// BeforeCreate ensures UUID, timestamps and defaults are set
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.TargetExam == "" {
		l.TargetExam = TargetExamOther
	}
	if l.Source == "" {
		l.Source = LeadSourceManual
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	PhoneNumber   *string
	Status        *LeadStatus
	Source        *LeadSource
	TargetExam    *TargetExam
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
