// Package dto contains Data Transfer Objects for API request and response structures
package dto

// InboundVoiceRequest is the provider's inbound call webhook
type InboundVoiceRequest struct {
	CallSid string
	From    string
	Digits  string
	LeadID  string
	Node    string
}

// OutboundVoiceRequest is the provider's fetch of instructions for a call we placed
type OutboundVoiceRequest struct {
	CallSid  string
	LeadID   string
	ScriptID string
}

// ObjectionVoiceRequest enters the objection sub-dialogue
type ObjectionVoiceRequest struct {
	CallSid  string
	LeadID   string
	ScriptID string
	Attempt  int
}

// ContinueVoiceRequest carries the result of a speech/keypad gather
type ContinueVoiceRequest struct {
	CallSid      string
	LeadID       string
	ScriptID     string
	Node         string
	SpeechResult string
	Digits       string
	Attempt      int
}

// CallStatusRequest is the provider's call status callback
type CallStatusRequest struct {
	CallSid      string
	CallStatus   string
	RecordingURL string
	CallDuration string
	Direction    string
	LeadID       string
}

// CallStatusResponse acknowledges a status callback
type CallStatusResponse struct {
	OK bool `json:"ok"`
}

// VoiceReply is a rendered markup document and the HTTP status to send it with
type VoiceReply struct {
	StatusCode int
	Body       string
}
