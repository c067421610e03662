package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

// InquiryDTO is the transport shape of an inquiry and its items.
type InquiryDTO struct {
	ID          uuid.UUID             `json:"id"`
	CustomerID  uuid.UUID             `json:"customerId"`
	Title       string                `json:"title"`
	Description *string               `json:"description,omitempty"`
	CreatedBy   uuid.UUID             `json:"createdBy"`
	AssigneeID  *uuid.UUID            `json:"assigneeId,omitempty"`
	Status      enums.InquiryStatus   `json:"status"`
	Priority    enums.InquiryPriority `json:"priority"`
	TotalAmount decimal.Decimal       `json:"totalAmount"`
	Deadline    *time.Time            `json:"deadline,omitempty"`
	SubmittedAt *time.Time            `json:"submittedAt,omitempty"`
	ClosedAt    *time.Time            `json:"closedAt,omitempty"`
	CancelledAt *time.Time            `json:"cancelledAt,omitempty"`
	CancelNote  *string               `json:"cancelReason,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Items       []ItemDTO             `json:"items,omitempty"`
}

// ItemDTO is the transport shape of an inquiry item.
type ItemDTO struct {
	ID              uuid.UUID               `json:"id"`
	InquiryID       uuid.UUID               `json:"inquiryId"`
	Name            string                  `json:"name"`
	Description     *string                 `json:"description,omitempty"`
	Quantity        int                     `json:"quantity"`
	Unit            string                  `json:"unit"`
	AssigneeID      *uuid.UUID              `json:"assigneeId,omitempty"`
	AssignedAt      *time.Time              `json:"assignedAt,omitempty"`
	Status          enums.InquiryItemStatus `json:"status"`
	CostCalculation *CostDTO                `json:"costCalculation,omitempty"`
}

// CostDTO is the transport shape of a cost calculation.
type CostDTO struct {
	ID               uuid.UUID       `json:"id"`
	ItemID           uuid.UUID       `json:"itemId"`
	CalculatedBy     uuid.UUID       `json:"calculatedBy"`
	MaterialCost     decimal.Decimal `json:"materialCost"`
	LaborCost        decimal.Decimal `json:"laborCost"`
	OverheadCost     decimal.Decimal `json:"overheadCost"`
	OtherCost        decimal.Decimal `json:"otherCost"`
	MarginPercent    decimal.Decimal `json:"marginPercent"`
	Total            decimal.Decimal `json:"total"`
	Notes            *string         `json:"notes,omitempty"`
	RequiresApproval bool            `json:"requiresApproval"`
	Locked           bool            `json:"locked"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ApprovalDTO is the transport shape of an approval.
type ApprovalDTO struct {
	ID                uuid.UUID            `json:"id"`
	CostCalculationID uuid.UUID            `json:"costCalculationId"`
	ItemID            uuid.UUID            `json:"itemId"`
	RequestedBy       uuid.UUID            `json:"requestedBy"`
	ApproverID        *uuid.UUID           `json:"approverId,omitempty"`
	Status            enums.ApprovalStatus `json:"status"`
	Threshold         decimal.Decimal      `json:"threshold"`
	Amount            decimal.Decimal      `json:"amount"`
	Reason            *string              `json:"reason,omitempty"`
	Comment           *string              `json:"comment,omitempty"`
	DecidedAt         *time.Time           `json:"decidedAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
}

// QuoteDTO is the transport shape of a quote.
type QuoteDTO struct {
	ID          uuid.UUID         `json:"id"`
	InquiryID   uuid.UUID         `json:"inquiryId"`
	QuoteNumber string            `json:"quoteNumber"`
	Total       decimal.Decimal   `json:"total"`
	Status      enums.QuoteStatus `json:"status"`
	ValidUntil  time.Time         `json:"validUntil"`
	SentAt      *time.Time        `json:"sentAt,omitempty"`
	DecidedAt   *time.Time        `json:"decidedAt,omitempty"`
	CreatedBy   uuid.UUID         `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ProductionOrderDTO is the transport shape of a production order.
type ProductionOrderDTO struct {
	ID          uuid.UUID                   `json:"id"`
	QuoteID     uuid.UUID                   `json:"quoteId"`
	InquiryID   uuid.UUID                   `json:"inquiryId"`
	OrderNumber string                      `json:"orderNumber"`
	Status      enums.ProductionOrderStatus `json:"status"`
	StartedAt   *time.Time                  `json:"startedAt,omitempty"`
	CompletedAt *time.Time                  `json:"completedAt,omitempty"`
	ShippedAt   *time.Time                  `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time                  `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

// QuoteOutcomeDTO pairs a decided quote with the order it opened.
type QuoteOutcomeDTO struct {
	Quote           *QuoteDTO           `json:"quote"`
	ProductionOrder *ProductionOrderDTO `json:"productionOrder,omitempty"`
}

func InquiryFromModel(m *models.Inquiry) *InquiryDTO {
	if m == nil {
		return nil
	}
	dto := &InquiryDTO{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		Title:       m.Title,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		AssigneeID:  m.AssigneeID,
		Status:      m.Status,
		Priority:    m.Priority,
		TotalAmount: m.TotalAmount,
		Deadline:    m.Deadline,
		SubmittedAt: m.SubmittedAt,
		ClosedAt:    m.ClosedAt,
		CancelledAt: m.CancelledAt,
		CancelNote:  m.CancelNote,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for i := range m.Items {
		dto.Items = append(dto.Items, *ItemFromModel(&m.Items[i]))
	}
	return dto
}

func ItemFromModel(m *models.InquiryItem) *ItemDTO {
	if m == nil {
		return nil
	}
	return &ItemDTO{
		ID:              m.ID,
		InquiryID:       m.InquiryID,
		Name:            m.Name,
		Description:     m.Description,
		Quantity:        m.Quantity,
		Unit:            m.Unit,
		AssigneeID:      m.AssigneeID,
		AssignedAt:      m.AssignedAt,
		Status:          m.Status,
		CostCalculation: CostFromModel(m.CostCalculation),
	}
}

func CostFromModel(m *models.CostCalculation) *CostDTO {
	if m == nil {
		return nil
	}
	return &CostDTO{
		ID:               m.ID,
		ItemID:           m.ItemID,
		CalculatedBy:     m.CalculatedBy,
		MaterialCost:     m.MaterialCost,
		LaborCost:        m.LaborCost,
		OverheadCost:     m.OverheadCost,
		OtherCost:        m.OtherCost,
		MarginPercent:    m.MarginPercent,
		Total:            m.Total,
		Notes:            m.Notes,
		RequiresApproval: m.RequiresApproval,
		Locked:           m.Locked,
		UpdatedAt:        m.UpdatedAt,
	}
}

func ApprovalFromModel(m *models.Approval) *ApprovalDTO {
	if m == nil {
		return nil
	}
	return &ApprovalDTO{
		ID:                m.ID,
		CostCalculationID: m.CostCalculationID,
		ItemID:            m.ItemID,
		RequestedBy:       m.RequestedBy,
		ApproverID:        m.ApproverID,
		Status:            m.Status,
		Threshold:         m.Threshold,
		Amount:            m.Amount,
		Reason:            m.Reason,
		Comment:           m.Comment,
		DecidedAt:         m.DecidedAt,
		CreatedAt:         m.CreatedAt,
	}
}

func QuoteFromModel(m *models.Quote) *QuoteDTO {
	if m == nil {
		return nil
	}
	return &QuoteDTO{
		ID:          m.ID,
		InquiryID:   m.InquiryID,
		QuoteNumber: m.QuoteNumber,
		Total:       m.Total,
		Status:      m.Status,
		ValidUntil:  m.ValidUntil,
		SentAt:      m.SentAt,
		DecidedAt:   m.DecidedAt,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func ProductionOrderFromModel(m *models.ProductionOrder) *ProductionOrderDTO {
	if m == nil {
		return nil
	}
	return &ProductionOrderDTO{
		ID:          m.ID,
		QuoteID:     m.QuoteID,
		InquiryID:   m.InquiryID,
		OrderNumber: m.OrderNumber,
		Status:      m.Status,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		ShippedAt:   m.ShippedAt,
		DeliveredAt: m.DeliveredAt,
		CreatedAt:   m.CreatedAt,
	}
}

func QuoteOutcomeFromResult(r *QuoteOutcomeResult) *QuoteOutcomeDTO {
	if r == nil {
		return nil
	}
	return &QuoteOutcomeDTO{
		Quote:           QuoteFromModel(r.Quote),
		ProductionOrder: ProductionOrderFromModel(r.ProductionOrder),
	}
}

// InquiryPage maps a page of inquiries to its transport shape.
func InquiryPage(page *pagination.Page[models.Inquiry]) pagination.Page[InquiryDTO] {
	out := pagination.Page[InquiryDTO]{Items: []InquiryDTO{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, *InquiryFromModel(&page.Items[i]))
	}
	return out
}
