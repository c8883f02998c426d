package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/utils"
)

// ErrAgentScriptNotFound is returned by script writes that matched no row
var ErrAgentScriptNotFound = errors.New("agent script not found")

// AgentScriptRepositoryImpl implements AgentScriptRepository interface
type AgentScriptRepositoryImpl struct {
	*BaseRepository[models.AgentScript, models.AgentScriptFilter]
}

// NewAgentScriptRepository creates a new agent script repository
func NewAgentScriptRepository(db *gorm.DB) AgentScriptRepository {
	return &AgentScriptRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentScript, models.AgentScriptFilter](db),
	}
}

// ByUUID retrieves a script by UUID (string). Malformed ids are treated as not found.
func (r *AgentScriptRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.AgentScript, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, nil
	}
	return r.first(ctx, models.AgentScriptFilter{UUID: &parsed})
}

// Default retrieves the deployment's default script, if any
func (r *AgentScriptRepositoryImpl) Default(ctx context.Context) (*models.AgentScript, error) {
	isDefault := true
	return r.first(ctx, models.AgentScriptFilter{IsDefault: &isDefault})
}

func (r *AgentScriptRepositoryImpl) first(ctx context.Context, filter models.AgentScriptFilter) (*models.AgentScript, error) {
	items, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// EnsureDefault returns the default script, creating it from seed when none exists.
// Concurrent callers converge on a single row through the partial unique index on is_default.
func (r *AgentScriptRepositoryImpl) EnsureDefault(ctx context.Context, seed *models.AgentScript) (*models.AgentScript, error) {
	existing, err := r.Default(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if seed == nil {
		return nil, errors.New("default script seed is nil")
	}

	seed.IsDefault = true
	err = r.write(ctx, func(db *gorm.DB) error {
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed)
		if result.Error != nil {
			return fmt.Errorf("failed to seed default script: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored, err := r.Default(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("default script missing after seeding")
	}
	return stored, nil
}

// Update updates the non-empty text fields of a script by ID
func (r *AgentScriptRepositoryImpl) Update(ctx context.Context, script *models.AgentScript) error {
	if script == nil {
		return errors.New("agent script payload is nil")
	}
	if script.ID == 0 {
		return errors.New("agent script ID is required for update")
	}

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if script.Name != "" {
		updates["name"] = script.Name
	}
	if script.Persona != "" {
		updates["persona"] = script.Persona
	}
	if script.Greeting != "" {
		updates["greeting"] = script.Greeting
	}
	if script.Pitch != "" {
		updates["pitch"] = script.Pitch
	}
	if script.ObjectionHandling != "" {
		updates["objection_handling"] = script.ObjectionHandling
	}
	if script.Closing != "" {
		updates["closing"] = script.Closing
	}

	return r.write(ctx, func(db *gorm.DB) error {
		result := db.Model(&models.AgentScript{}).
			Where("id = ?", script.ID).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update agent script %d: %w", script.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAgentScriptNotFound
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *AgentScriptRepositoryImpl) applyFilter(query *gorm.DB, filter models.AgentScriptFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.IsDefault != nil {
		query = query.Where("is_default = ?", *filter.IsDefault)
	}
	return query
}

// ByFilter retrieves scripts based on filter criteria
func (r *AgentScriptRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentScriptFilter, orderBy string, limit, offset int) ([]*models.AgentScript, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AgentScript{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var scripts []*models.AgentScript
	if err := query.Find(&scripts).Error; err != nil {
		return nil, fmt.Errorf("failed to find agent scripts: %w", err)
	}
	return scripts, nil
}

// Count returns the number of scripts matching the filter
func (r *AgentScriptRepositoryImpl) Count(ctx context.Context, filter models.AgentScriptFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AgentScript{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any script matching the filter exists
func (r *AgentScriptRepositoryImpl) Exists(ctx context.Context, filter models.AgentScriptFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
