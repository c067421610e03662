package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

// Inquiry is a customer request for a quote. It owns its items.
type Inquiry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	Title       string                `gorm:"column:title;type:text;not null"`
	Description *string               `gorm:"column:description;type:text"`
	CreatedBy   uuid.UUID             `gorm:"column:created_by;type:uuid;not null;index"`
	AssigneeID  *uuid.UUID            `gorm:"column:assignee_id;type:uuid"`
	Status      enums.InquiryStatus   `gorm:"column:status;type:text;not null;index"`
	Priority    enums.InquiryPriority `gorm:"column:priority;type:text;not null"`
	TotalAmount decimal.Decimal       `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Deadline    *time.Time            `gorm:"column:deadline"`
	SubmittedAt *time.Time            `gorm:"column:submitted_at"`
	ClosedAt    *time.Time            `gorm:"column:closed_at"`
	CancelledAt *time.Time            `gorm:"column:cancelled_at"`
	CancelNote  *string               `gorm:"column:cancel_reason;type:text"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Items []InquiryItem `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE"`
}

func (i *Inquiry) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InquiryItem is one line of an inquiry that a VP/VPP prices.
type InquiryItem struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	InquiryID   uuid.UUID               `gorm:"column:inquiry_id;type:uuid;not null;index"`
	Name        string                  `gorm:"column:name;type:text;not null"`
	Description *string                 `gorm:"column:description;type:text"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	Unit        string                  `gorm:"column:unit;type:text;not null"`
	AssigneeID  *uuid.UUID              `gorm:"column:assignee_id;type:uuid;index"`
	AssignedAt  *time.Time              `gorm:"column:assigned_at"`
	Status      enums.InquiryItemStatus `gorm:"column:status;type:text;not null;index"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`

	CostCalculation *CostCalculation `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (i *InquiryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
