package automation

import (
	"context"

	"github.com/angelmondragon/quoteflow-backend/internal/repo"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleFilter narrows rule listings.
type RuleFilter struct {
	Trigger enums.AutomationTrigger
	Active  *bool
}

// LogFilter narrows log listings.
type LogFilter struct {
	RuleID   *uuid.UUID
	EntityID *uuid.UUID
	Trigger  enums.AutomationTrigger
}

// Repository persists rules and their logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context) (int64, error)
	CreateRule(ctx context.Context, rule *models.AutomationRule) error
	FindRule(ctx context.Context, id uuid.UUID) (*models.AutomationRule, error)
	LockRule(ctx context.Context, id uuid.UUID) (*models.AutomationRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteRule(ctx context.Context, id uuid.UUID) (bool, error)
	ActiveRules(ctx context.Context, trigger enums.AutomationTrigger) ([]models.AutomationRule, error)
	ListRules(ctx context.Context, filter RuleFilter, params pagination.Params) ([]models.AutomationRule, error)
	CreateLog(ctx context.Context, entry *models.AutomationLog) error
	ListLogs(ctx context.Context, filter LogFilter, params pagination.Params) ([]models.AutomationLog, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository binds the automation repository to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(conn)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Base.WithTx(tx)}
}

// NextSequence returns max(sequence)+1. Call it inside the creating
// transaction; the unique index rejects a concurrent duplicate.
func (r *repositoryImpl) NextSequence(ctx context.Context) (int64, error) {
	var current int64
	row := r.DB(ctx).Model(&models.AutomationRule{}).Select("COALESCE(MAX(sequence), 0)").Row()
	if err := row.Scan(&current); err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (r *repositoryImpl) CreateRule(ctx context.Context, rule *models.AutomationRule) error {
	return r.DB(ctx).Create(rule).Error
}

func (r *repositoryImpl) FindRule(ctx context.Context, id uuid.UUID) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := r.DB(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repositoryImpl) LockRule(ctx context.Context, id uuid.UUID) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := r.Locked(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repositoryImpl) UpdateRule(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.AutomationRule{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repositoryImpl) DeleteRule(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Delete(&models.AutomationRule{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ActiveRules returns the active rules of trigger in firing order.
func (r *repositoryImpl) ActiveRules(ctx context.Context, trigger enums.AutomationTrigger) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	err := r.DB(ctx).
		Where("trigger_type = ? AND is_active = ?", trigger, true).
		Order("priority DESC").
		Order("sequence ASC").
		Find(&rules).Error
	return rules, err
}

func (r *repositoryImpl) ListRules(ctx context.Context, filter RuleFilter, params pagination.Params) ([]models.AutomationRule, error) {
	query := r.DB(ctx).Model(&models.AutomationRule{})
	if filter.Trigger != "" {
		query = query.Where("trigger_type = ?", filter.Trigger)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	query, err := pagination.Apply(query, "", params)
	if err != nil {
		return nil, err
	}
	var out []models.AutomationRule
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) CreateLog(ctx context.Context, entry *models.AutomationLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListLogs(ctx context.Context, filter LogFilter, params pagination.Params) ([]models.AutomationLog, error) {
	query := r.DB(ctx).Model(&models.AutomationLog{})
	if filter.RuleID != nil {
		query = query.Where("rule_id = ?", *filter.RuleID)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Trigger != "" {
		query = query.Where("trigger_type = ?", filter.Trigger)
	}
	query, err := pagination.ApplyOn(query, "fired_at", "id", params)
	if err != nil {
		return nil, err
	}
	var out []models.AutomationLog
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
