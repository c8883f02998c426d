package businessflow

import (
	"context"

	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	"github.com/victorycadets/admissions-agent/utils"
)

// AgentScriptFlow exposes the sales script store
type AgentScriptFlow interface {
	GetDefaultScript(ctx context.Context) (*dto.AgentScriptDTO, error)
	UpdateScript(ctx context.Context, scriptID string, req dto.UpdateAgentScriptRequest) (*dto.AgentScriptDTO, error)
}

type AgentScriptFlowImpl struct {
	scriptRepo repository.AgentScriptRepository
	db         *gorm.DB
}

func NewAgentScriptFlow(scriptRepo repository.AgentScriptRepository, db *gorm.DB) AgentScriptFlow {
	return &AgentScriptFlowImpl{scriptRepo: scriptRepo, db: db}
}

// GetDefaultScript returns the default script, seeding it on first use
func (f *AgentScriptFlowImpl) GetDefaultScript(ctx context.Context) (result *dto.AgentScriptDTO, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_DEFAULT_SCRIPT_FAILED", "Failed to load default script", err)
		}
	}()

	if f.db == nil {
		return nil, ErrPersistenceUnavailable
	}
	script, err := f.scriptRepo.EnsureDefault(ctx, models.DefaultAgentScript())
	if err != nil {
		return nil, unavailable(err)
	}
	return ToAgentScriptDTO(script), nil
}

// UpdateScript applies a partial update to a script
func (f *AgentScriptFlowImpl) UpdateScript(ctx context.Context, scriptID string, req dto.UpdateAgentScriptRequest) (result *dto.AgentScriptDTO, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("UPDATE_SCRIPT_FAILED", "Failed to update script", err)
		}
	}()

	if f.db == nil {
		return nil, ErrPersistenceUnavailable
	}
	if req.IsEmpty() {
		return nil, ErrScriptUpdateRequired
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		script, err := f.scriptRepo.ByUUID(txCtx, scriptID)
		if err != nil {
			return unavailable(err)
		}
		if script == nil {
			return ErrScriptNotFound
		}

		patch := &models.AgentScript{
			ID:                script.ID,
			Name:              utils.Deref(req.Name),
			Persona:           utils.Deref(req.Persona),
			Greeting:          utils.Deref(req.Greeting),
			Pitch:             utils.Deref(req.Pitch),
			ObjectionHandling: utils.Deref(req.ObjectionHandling),
			Closing:           utils.Deref(req.Closing),
		}
		if err := f.scriptRepo.Update(txCtx, patch); err != nil {
			return unavailable(err)
		}

		updated, err := f.scriptRepo.ByID(txCtx, script.ID)
		if err != nil {
			return unavailable(err)
		}
		result = ToAgentScriptDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ToAgentScriptDTO converts a script model for API responses
func ToAgentScriptDTO(s *models.AgentScript) *dto.AgentScriptDTO {
	return &dto.AgentScriptDTO{
		ID:                s.UUID.String(),
		Name:              s.Name,
		Persona:           s.Persona,
		Greeting:          s.Greeting,
		Pitch:             s.Pitch,
		ObjectionHandling: s.ObjectionHandling,
		Closing:           s.Closing,
		IsDefault:         s.IsDefault,
		CreatedAt:         utils.FormatTime(s.CreatedAt),
		UpdatedAt:         utils.FormatTime(s.UpdatedAt),
	}
}
