package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

// AutomationRule stores a trigger/condition/action rule. Conditions and actions
// are JSON arrays decoded by the automation package.
type AutomationRule struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Name        string                  `gorm:"column:name;type:text;not null"`
	Description *string                 `gorm:"column:description;type:text"`
	Trigger     enums.AutomationTrigger `gorm:"column:trigger_type;type:text;not null;index:idx_automation_rules_trigger_active"`
	Conditions  datatypes.JSON          `gorm:"column:conditions;not null"`
	Actions     datatypes.JSON          `gorm:"column:actions;not null"`
	Priority    int                     `gorm:"column:priority;not null;default:0"`
	IsActive    bool                    `gorm:"column:is_active;not null;default:true;index:idx_automation_rules_trigger_active"`
	CreatedBy   uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	Sequence    int64                   `gorm:"column:sequence;not null;uniqueIndex:ux_automation_rules_sequence"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *AutomationRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// AutomationLog is the append-only record of one rule firing or one halted pass.
type AutomationLog struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	RuleID     *uuid.UUID               `gorm:"column:rule_id;type:uuid;index"`
	Trigger    enums.AutomationTrigger  `gorm:"column:trigger_type;type:text;not null"`
	EntityType string                   `gorm:"column:entity_type;type:text;not null"`
	EntityID   uuid.UUID                `gorm:"column:entity_id;type:uuid;not null;index"`
	Outcome    enums.AutomationOutcome  `gorm:"column:outcome;type:text;not null"`
	Severity   enums.AutomationSeverity `gorm:"column:severity;type:text;not null"`
	Message    string                   `gorm:"column:message;type:text;not null"`
	FiredAt    time.Time                `gorm:"column:fired_at;not null;index"`
}

func (l *AutomationLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	if l.FiredAt.IsZero() {
		l.FiredAt = time.Now().UTC()
	}
	return nil
}
