package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/utils"
)

// ErrLeadNotFound is returned by lead writes that matched no row
var ErrLeadNotFound = errors.New("lead not found")

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByUUID retrieves a lead by UUID (string). Malformed ids are treated as not found.
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Lead, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, nil
	}
	return r.first(ctx, models.LeadFilter{UUID: &parsed})
}

// ByPhone retrieves a lead by its phone number
func (r *LeadRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	return r.first(ctx, models.LeadFilter{PhoneNumber: &phone})
}

func (r *LeadRepositoryImpl) first(ctx context.Context, filter models.LeadFilter) (*models.Lead, error) {
	items, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// SaveIfPhoneAbsent inserts the lead unless its phone number is already known.
// It returns the stored lead and whether this call created it.
func (r *LeadRepositoryImpl) SaveIfPhoneAbsent(ctx context.Context, lead *models.Lead) (*models.Lead, bool, error) {
	if lead == nil || strings.TrimSpace(lead.PhoneNumber) == "" {
		return nil, false, errors.New("lead phone number is required")
	}

	var created bool
	err := r.write(ctx, func(db *gorm.DB) error {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).Create(lead)
		if result.Error != nil {
			return fmt.Errorf("failed to save lead: %w", result.Error)
		}
		created = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		return lead, true, nil
	}

	existing, err := r.ByPhone(ctx, lead.PhoneNumber)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("lead with phone %s vanished after conflict", lead.PhoneNumber)
	}
	return existing, false, nil
}

// UpdateStatus sets the lead status
func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus) error {
	return r.updateColumns(ctx, leadID, map[string]any{"status": status})
}

// AppendNote appends a line to the lead's notes log in a single statement
func (r *LeadRepositoryImpl) AppendNote(ctx context.Context, leadID uint, note string) error {
	if note == "" {
		return nil
	}
	return r.updateColumns(ctx, leadID, map[string]any{
		"notes": gorm.Expr("CASE WHEN notes IS NULL OR notes = '' THEN ? ELSE notes || ? END", note, notesSeparator+note),
	})
}

// TouchLastContacted stamps last_contacted_at
func (r *LeadRepositoryImpl) TouchLastContacted(ctx context.Context, leadID uint, at time.Time) error {
	return r.updateColumns(ctx, leadID, map[string]any{"last_contacted_at": at.UTC()})
}

func (r *LeadRepositoryImpl) updateColumns(ctx context.Context, leadID uint, updates map[string]any) error {
	updates["updated_at"] = utils.UTCNow()

	return r.write(ctx, func(db *gorm.DB) error {
		result := db.Model(&models.Lead{}).
			Where("id = ?", leadID).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update lead %d: %w", leadID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLeadNotFound
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.TargetExam != nil {
		query = query.Where("target_exam = ?", *filter.TargetExam)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Lead{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var leads []*models.Lead
	if err := query.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to find leads: %w", err)
	}
	return leads, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Lead{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
