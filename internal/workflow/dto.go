package workflow

import (
	"strings"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInquiryInput describes a new DRAFT inquiry.
type CreateInquiryInput struct {
	CustomerID  uuid.UUID
	Title       string
	Description *string
	Priority    enums.InquiryPriority
	Deadline    *time.Time
	Items       []ItemInput
}

// ItemInput is one line of a new inquiry.
type ItemInput struct {
	Name        string
	Description *string
	Quantity    int
	Unit        string
}

func (in *CreateInquiryInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if in.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if in.Priority == "" {
		in.Priority = enums.InquiryPriorityNormal
	}
	if !in.Priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid priority "+string(in.Priority))
	}
	for i := range in.Items {
		item := &in.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		item.Unit = strings.TrimSpace(item.Unit)
		if item.Name == "" || item.Unit == "" || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "every item needs a name, a unit and a positive quantity").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

// CostInput carries the components of a cost calculation.
type CostInput struct {
	MaterialCost  decimal.Decimal
	LaborCost     decimal.Decimal
	OverheadCost  decimal.Decimal
	OtherCost     decimal.Decimal
	MarginPercent decimal.Decimal
	Notes         *string
}

func (in CostInput) validate() error {
	fields := map[string]decimal.Decimal{
		"materialCost":  in.MaterialCost,
		"laborCost":     in.LaborCost,
		"overheadCost":  in.OverheadCost,
		"otherCost":     in.OtherCost,
		"marginPercent": in.MarginPercent,
	}
	var negative []string
	for _, name := range []string{"materialCost", "laborCost", "overheadCost", "otherCost", "marginPercent"} {
		if fields[name].IsNegative() {
			negative = append(negative, name)
		}
	}
	if len(negative) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cost components must not be negative").
			WithDetails(map[string]any{"fields": negative})
	}
	return nil
}

// Total applies the margin to the summed components and rounds to cents.
func (in CostInput) Total() decimal.Decimal {
	base := in.MaterialCost.Add(in.LaborCost).Add(in.OverheadCost).Add(in.OtherCost)
	factor := decimal.NewFromInt(1).Add(in.MarginPercent.Div(decimal.NewFromInt(100)))
	return base.Mul(factor).Round(2)
}

// ListInquiriesParams filters and pages ListInquiries.
type ListInquiriesParams struct {
	Status     enums.InquiryStatus
	CustomerID uuid.UUID
	Mine       bool
	Limit      int
	Cursor     string
}

// AssignmentResult reports what a bulk assignment changed.
type AssignmentResult struct {
	AssigneeID uuid.UUID   `json:"assigneeId"`
	ItemIDs    []uuid.UUID `json:"itemIds"`
	InquiryIDs []uuid.UUID `json:"inquiryIds"`
}

// QuoteOutcomeResult is the quote after its outcome and, for ACCEPTED, the
// production order it opened.
type QuoteOutcomeResult struct {
	Quote           *models.Quote           `json:"quote"`
	ProductionOrder *models.ProductionOrder `json:"productionOrder,omitempty"`
}

// MissingPrerequisites lists the items blocking quote generation.
type MissingPrerequisites struct {
	MissingCostItemIDs     []uuid.UUID `json:"missingCostItemIds"`
	MissingApprovalItemIDs []uuid.UUID `json:"missingApprovalItemIds"`
}

func (m MissingPrerequisites) empty() bool {
	return len(m.MissingCostItemIDs) == 0 && len(m.MissingApprovalItemIDs) == 0
}

func invalidItemsError(message string, invalid []assignment.InvalidItem) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{
		"invalidItemIds": assignment.InvalidIDs(invalid),
		"invalidItems":   invalid,
	})
}
