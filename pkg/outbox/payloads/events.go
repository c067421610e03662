package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names below are the JSON keys automation conditions address, so they
// are part of the public rule contract.

type InquiryCreatedEvent struct {
	InquiryID  uuid.UUID `json:"inquiryId"`
	CustomerID uuid.UUID `json:"customerId"`
	Title      string    `json:"title"`
	Priority   string    `json:"priority"`
	Status     string    `json:"status"`
	CreatedBy  uuid.UUID `json:"createdBy"`
	ItemCount  int       `json:"itemCount"`
}

type InquiryStatusChangedEvent struct {
	InquiryID      uuid.UUID `json:"inquiryId"`
	CustomerID     uuid.UUID `json:"customerId"`
	PreviousStatus string    `json:"previousStatus"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	ChangedBy      uuid.UUID `json:"changedBy"`
	Reason         string    `json:"reason,omitempty"`
}

type ItemsAssignedEvent struct {
	InquiryID    uuid.UUID   `json:"inquiryId"`
	AssigneeID   uuid.UUID   `json:"assigneeId"`
	AssigneeRole string      `json:"assigneeRole"`
	ItemIDs      []uuid.UUID `json:"itemIds"`
	ItemCount    int         `json:"itemCount"`
	Priority     string      `json:"priority"`
	AssignedBy   uuid.UUID   `json:"assignedBy"`
}

type ItemsUnassignedEvent struct {
	InquiryID    uuid.UUID   `json:"inquiryId"`
	ItemIDs      []uuid.UUID `json:"itemIds"`
	UnassignedBy uuid.UUID   `json:"unassignedBy"`
}

type CostCalculatedEvent struct {
	InquiryID         uuid.UUID       `json:"inquiryId"`
	ItemID            uuid.UUID       `json:"itemId"`
	CostCalculationID uuid.UUID       `json:"costCalculationId"`
	AssigneeID        uuid.UUID       `json:"assigneeId"`
	Total             decimal.Decimal `json:"total"`
	MarginPercent     decimal.Decimal `json:"marginPercent"`
	RequiresApproval  bool            `json:"requiresApproval"`
}

type ApprovalRequiredEvent struct {
	ApprovalID        uuid.UUID       `json:"approvalId"`
	CostCalculationID uuid.UUID       `json:"costCalculationId"`
	ItemID            uuid.UUID       `json:"itemId"`
	InquiryID         uuid.UUID       `json:"inquiryId"`
	Amount            decimal.Decimal `json:"amount"`
	Threshold         decimal.Decimal `json:"threshold"`
	Reason            string          `json:"reason,omitempty"`
	RequestedBy       uuid.UUID       `json:"requestedBy"`
}

type ApprovalDecidedEvent struct {
	ApprovalID uuid.UUID `json:"approvalId"`
	ItemID     uuid.UUID `json:"itemId"`
	InquiryID  uuid.UUID `json:"inquiryId"`
	Status     string    `json:"status"`
	ApproverID uuid.UUID `json:"approverId"`
	Comment    string    `json:"comment,omitempty"`
}

type QuoteCreatedEvent struct {
	QuoteID     uuid.UUID       `json:"quoteId"`
	InquiryID   uuid.UUID       `json:"inquiryId"`
	QuoteNumber string          `json:"quoteNumber"`
	Total       decimal.Decimal `json:"total"`
	ValidUntil  time.Time       `json:"validUntil"`
	CreatedBy   uuid.UUID       `json:"createdBy"`
}

type QuoteSentEvent struct {
	QuoteID     uuid.UUID `json:"quoteId"`
	InquiryID   uuid.UUID `json:"inquiryId"`
	QuoteNumber string    `json:"quoteNumber"`
	SentAt      time.Time `json:"sentAt"`
}

type QuoteOutcomeRecordedEvent struct {
	QuoteID   uuid.UUID `json:"quoteId"`
	InquiryID uuid.UUID `json:"inquiryId"`
	Outcome   string    `json:"outcome"`
	DecidedBy uuid.UUID `json:"decidedBy"`
}

type ProductionOrderCreatedEvent struct {
	ProductionOrderID uuid.UUID       `json:"productionOrderId"`
	QuoteID           uuid.UUID       `json:"quoteId"`
	InquiryID         uuid.UUID       `json:"inquiryId"`
	OrderNumber       string          `json:"orderNumber"`
	Total             decimal.Decimal `json:"total"`
}

type ProductionOrderAdvancedEvent struct {
	ProductionOrderID uuid.UUID `json:"productionOrderId"`
	InquiryID         uuid.UUID `json:"inquiryId"`
	OrderNumber       string    `json:"orderNumber"`
	PreviousStatus    string    `json:"previousStatus"`
	Status            string    `json:"status"`
}

type DeadlineApproachingEvent struct {
	QuoteID       uuid.UUID `json:"quoteId"`
	InquiryID     uuid.UUID `json:"inquiryId"`
	QuoteNumber   string    `json:"quoteNumber"`
	ValidUntil    time.Time `json:"validUntil"`
	DaysRemaining int       `json:"daysRemaining"`
}

type WorkloadThresholdEvent struct {
	AssigneeID     uuid.UUID `json:"assigneeId"`
	AssigneeName   string    `json:"assigneeName"`
	AssigneeRole   string    `json:"assigneeRole"`
	PendingCount   int       `json:"pendingCount"`
	AveragePending float64   `json:"averagePending"`
	Factor         float64   `json:"factor"`
}

// EmailRequestedEvent asks the external mailer to deliver a message.
type EmailRequestedEvent struct {
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Template      string    `json:"template,omitempty"`
	RelatedEntity string    `json:"relatedEntity,omitempty"`
	RelatedID     uuid.UUID `json:"relatedId"`
}
