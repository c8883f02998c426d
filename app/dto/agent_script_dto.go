package dto

// AgentScriptDTO represents an agent script for responses
type AgentScriptDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Persona           string `json:"persona"`
	Greeting          string `json:"greeting"`
	Pitch             string `json:"pitch"`
	ObjectionHandling string `json:"objection_handling"`
	Closing           string `json:"closing"`
	IsDefault         bool   `json:"is_default"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// UpdateAgentScriptRequest is a partial update; omitted fields keep their value
type UpdateAgentScriptRequest struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Persona           *string `json:"persona,omitempty" validate:"omitempty,min=1,max=2000"`
	Greeting          *string `json:"greeting,omitempty" validate:"omitempty,min=1,max=2000"`
	Pitch             *string `json:"pitch,omitempty" validate:"omitempty,min=1,max=4000"`
	ObjectionHandling *string `json:"objection_handling,omitempty" validate:"omitempty,min=1,max=4000"`
	Closing           *string `json:"closing,omitempty" validate:"omitempty,min=1,max=2000"`
}

// IsEmpty reports whether the update changes nothing
func (r UpdateAgentScriptRequest) IsEmpty() bool {
	return r.Name == nil && r.Persona == nil && r.Greeting == nil &&
		r.Pitch == nil && r.ObjectionHandling == nil && r.Closing == nil
}
