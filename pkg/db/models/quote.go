package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

// Quote is the priced offer sent to the customer.
type Quote struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	InquiryID   uuid.UUID         `gorm:"column:inquiry_id;type:uuid;not null;index"`
	QuoteNumber string            `gorm:"column:quote_number;type:text;not null;uniqueIndex:ux_quotes_quote_number"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null"`
	Status      enums.QuoteStatus `gorm:"column:status;type:text;not null;index"`
	ValidUntil  time.Time         `gorm:"column:valid_until;not null"`
	SentAt      *time.Time        `gorm:"column:sent_at"`
	DecidedAt   *time.Time        `gorm:"column:decided_at"`
	CreatedBy   uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (q *Quote) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// ProductionOrder tracks manufacturing of an accepted quote.
type ProductionOrder struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	QuoteID     uuid.UUID                   `gorm:"column:quote_id;type:uuid;not null;uniqueIndex:ux_production_orders_quote"`
	InquiryID   uuid.UUID                   `gorm:"column:inquiry_id;type:uuid;not null;index"`
	OrderNumber string                      `gorm:"column:order_number;type:text;not null;uniqueIndex:ux_production_orders_order_number"`
	Status      enums.ProductionOrderStatus `gorm:"column:status;type:text;not null;index"`
	StartedAt   *time.Time                  `gorm:"column:started_at"`
	CompletedAt *time.Time                  `gorm:"column:completed_at"`
	ShippedAt   *time.Time                  `gorm:"column:shipped_at"`
	DeliveredAt *time.Time                  `gorm:"column:delivered_at"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ProductionOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
