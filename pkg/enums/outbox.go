package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateInquiry         OutboxAggregateType = "inquiry"
	AggregateInquiryItem     OutboxAggregateType = "inquiry_item"
	AggregateCostCalculation OutboxAggregateType = "cost_calculation"
	AggregateApproval        OutboxAggregateType = "approval"
	AggregateQuote           OutboxAggregateType = "quote"
	AggregateProductionOrder OutboxAggregateType = "production_order"
	AggregateUser            OutboxAggregateType = "user"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInquiry,
	AggregateInquiryItem,
	AggregateCostCalculation,
	AggregateApproval,
	AggregateQuote,
	AggregateProductionOrder,
	AggregateUser,
	AggregateNotification,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the wire name of an exported domain event.
type OutboxEventType string

const (
	EventInquiryCreated          OutboxEventType = "inquiry_created"
	EventInquiryStatusChanged    OutboxEventType = "inquiry_status_changed"
	EventItemsAssigned           OutboxEventType = "items_assigned"
	EventItemsUnassigned         OutboxEventType = "items_unassigned"
	EventCostCalculated          OutboxEventType = "cost_calculated"
	EventApprovalRequired        OutboxEventType = "approval_required"
	EventApprovalDecided         OutboxEventType = "approval_decided"
	EventQuoteCreated            OutboxEventType = "quote_created"
	EventQuoteSent               OutboxEventType = "quote_sent"
	EventQuoteOutcomeRecorded    OutboxEventType = "quote_outcome_recorded"
	EventProductionOrderCreated  OutboxEventType = "production_order_created"
	EventProductionOrderAdvanced OutboxEventType = "production_order_advanced"
	EventDeadlineApproaching     OutboxEventType = "deadline_approaching"
	EventWorkloadThreshold       OutboxEventType = "workload_threshold"
	EventEmailRequested          OutboxEventType = "email_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInquiryCreated,
	EventInquiryStatusChanged,
	EventItemsAssigned,
	EventItemsUnassigned,
	EventCostCalculated,
	EventApprovalRequired,
	EventApprovalDecided,
	EventQuoteCreated,
	EventQuoteSent,
	EventQuoteOutcomeRecorded,
	EventProductionOrderCreated,
	EventProductionOrderAdvanced,
	EventDeadlineApproaching,
	EventWorkloadThreshold,
	EventEmailRequested,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
