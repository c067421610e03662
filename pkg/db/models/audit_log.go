package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only snapshot of a state change.
type AuditLog struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Action    string         `gorm:"column:action;type:text;not null"`
	Entity    string         `gorm:"column:entity;type:text;not null;index:idx_audit_logs_entity"`
	EntityID  uuid.UUID      `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_logs_entity"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid"`
	OldData   datatypes.JSON `gorm:"column:old_data"`
	NewData   datatypes.JSON `gorm:"column:new_data"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
