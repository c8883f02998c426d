package dto

// InitiateCallRequest optionally pins the script for an outbound call
type InitiateCallRequest struct {
	ScriptID *string `json:"script_id,omitempty" validate:"omitempty,uuid"`
}

// InitiateCallResponse reports a placed outbound call
type InitiateCallResponse struct {
	Message  string `json:"message"`
	Sid      string `json:"sid"`
	LeadID   string `json:"lead_id"`
	ScriptID string `json:"script_id"`
	Status   string `json:"status"`
}

// CallRecordDTO is one row of the call ledger
type CallRecordDTO struct {
	CallSid         string  `json:"call_sid"`
	LeadID          *uint   `json:"lead_id,omitempty"`
	Direction       string  `json:"direction"`
	Disposition     string  `json:"disposition"`
	RecordingURL    *string `json:"recording_url,omitempty"`
	Transcript      *string `json:"transcript,omitempty"`
	OutcomeNotes    *string `json:"outcome_notes,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	StartedAt       string  `json:"started_at"`
	EndedAt         *string `json:"ended_at,omitempty"`
}

// CallLedgerExport is a rendered call ledger workbook
type CallLedgerExport struct {
	Filename string
	Content  []byte
	Rows     int
}
