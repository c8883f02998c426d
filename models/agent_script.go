package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/utils"
)

// AgentScript is the sales script the automated agent reads on outbound calls
// Table: agent_scripts
// At most one row has is_default = true (partial unique index)
// A call resolves its script once at initiation and carries the UUID through every webhook
type AgentScript struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_agent_scripts_uuid" json:"uuid"`

	Name              string `gorm:"size:255;not null" json:"name"`
	Persona           string `gorm:"type:text;not null" json:"persona"`
	Greeting          string `gorm:"type:text;not null" json:"greeting"`
	Pitch             string `gorm:"type:text;not null" json:"pitch"`
	ObjectionHandling string `gorm:"type:text;not null" json:"objection_handling"`
	Closing           string `gorm:"type:text;not null" json:"closing"`
	IsDefault         bool   `gorm:"not null;default:false;uniqueIndex:uk_agent_scripts_default,where:is_default = true" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AgentScript) TableName() string { return "agent_scripts" }

// BeforeCreate ensures UUID and timestamps are set
func (s *AgentScript) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// DefaultAgentScript returns the script seeded when a deployment has none
func DefaultAgentScript() *AgentScript {
	return &AgentScript{
		Name:              "Ananya Sharma",
		Persona:           "Warm, confident admissions counsellor representing Victory Cadets Academy.",
		Greeting:          "Hello! This is Ananya from Victory Cadets Academy. Am I speaking with the parent or guardian of the aspiring cadet?",
		Pitch:             "We specialise in preparing students for Sainik School, RMS, and Navodaya entrance exams with a proven track record. I would love to schedule a free demo class so your child can experience our teaching style and disciplined mentoring.",
		ObjectionHandling: "I completely understand you want the best guidance. The demo class is absolutely free and gives you a clear action plan tailored for your child.",
		Closing:           "Shall we book a convenient slot for the free demo class? It takes just a moment and helps you make an informed decision.",
		IsDefault:         true,
	}
}

// AgentScriptFilter represents filter criteria for agent script queries
type AgentScriptFilter struct {
	ID        *uint
	UUID      *uuid.UUID
	IsDefault *bool
}
