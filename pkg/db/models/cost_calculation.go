package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

// CostCalculation prices one inquiry item. It becomes immutable once a sent
// quote references it.
type CostCalculation struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID           uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_cost_calculations_item"`
	CalculatedBy     uuid.UUID       `gorm:"column:calculated_by;type:uuid;not null"`
	MaterialCost     decimal.Decimal `gorm:"column:material_cost;type:numeric(14,2);not null;default:0"`
	LaborCost        decimal.Decimal `gorm:"column:labor_cost;type:numeric(14,2);not null;default:0"`
	OverheadCost     decimal.Decimal `gorm:"column:overhead_cost;type:numeric(14,2);not null;default:0"`
	OtherCost        decimal.Decimal `gorm:"column:other_cost;type:numeric(14,2);not null;default:0"`
	MarginPercent    decimal.Decimal `gorm:"column:margin_percent;type:numeric(6,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	Notes            *string         `gorm:"column:notes;type:text"`
	RequiresApproval bool            `gorm:"column:requires_approval;not null;default:false"`
	Locked           bool            `gorm:"column:locked;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Approvals []Approval `gorm:"foreignKey:CostCalculationID;constraint:OnDelete:CASCADE"`
}

func (c *CostCalculation) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Approval is a manager decision on a cost calculation.
type Approval struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CostCalculationID uuid.UUID            `gorm:"column:cost_calculation_id;type:uuid;not null;index"`
	ItemID            uuid.UUID            `gorm:"column:item_id;type:uuid;not null;index"`
	RequestedBy       uuid.UUID            `gorm:"column:requested_by;type:uuid;not null"`
	ApproverID        *uuid.UUID           `gorm:"column:approver_id;type:uuid"`
	Status            enums.ApprovalStatus `gorm:"column:status;type:text;not null;index"`
	Threshold         decimal.Decimal      `gorm:"column:threshold;type:numeric(14,2);not null"`
	Amount            decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Reason            *string              `gorm:"column:reason;type:text"`
	Comment           *string              `gorm:"column:comment;type:text"`
	DecidedAt         *time.Time           `gorm:"column:decided_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Approval) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
