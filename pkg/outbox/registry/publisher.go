package registry

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/pkg/config"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	if cfg.EmailTopic == "" {
		return nil, fmt.Errorf("email topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	domain := cfg.DomainTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventInquiryCreated,
			AggregateType:  enums.AggregateInquiry,
			PayloadFactory: func() interface{} { return &payloads.InquiryCreatedEvent{} },
		},
		{
			EventType:      enums.EventInquiryStatusChanged,
			AggregateType:  enums.AggregateInquiry,
			PayloadFactory: func() interface{} { return &payloads.InquiryStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventItemsAssigned,
			AggregateType:  enums.AggregateInquiry,
			PayloadFactory: func() interface{} { return &payloads.ItemsAssignedEvent{} },
		},
		{
			EventType:      enums.EventItemsUnassigned,
			AggregateType:  enums.AggregateInquiry,
			PayloadFactory: func() interface{} { return &payloads.ItemsUnassignedEvent{} },
		},
		{
			EventType:      enums.EventCostCalculated,
			AggregateType:  enums.AggregateInquiryItem,
			PayloadFactory: func() interface{} { return &payloads.CostCalculatedEvent{} },
		},
		{
			EventType:      enums.EventApprovalRequired,
			AggregateType:  enums.AggregateApproval,
			PayloadFactory: func() interface{} { return &payloads.ApprovalRequiredEvent{} },
		},
		{
			EventType:      enums.EventApprovalDecided,
			AggregateType:  enums.AggregateApproval,
			PayloadFactory: func() interface{} { return &payloads.ApprovalDecidedEvent{} },
		},
		{
			EventType:      enums.EventQuoteCreated,
			AggregateType:  enums.AggregateQuote,
			PayloadFactory: func() interface{} { return &payloads.QuoteCreatedEvent{} },
		},
		{
			EventType:      enums.EventQuoteSent,
			AggregateType:  enums.AggregateQuote,
			PayloadFactory: func() interface{} { return &payloads.QuoteSentEvent{} },
		},
		{
			EventType:      enums.EventQuoteOutcomeRecorded,
			AggregateType:  enums.AggregateQuote,
			PayloadFactory: func() interface{} { return &payloads.QuoteOutcomeRecordedEvent{} },
		},
		{
			EventType:      enums.EventProductionOrderCreated,
			AggregateType:  enums.AggregateProductionOrder,
			PayloadFactory: func() interface{} { return &payloads.ProductionOrderCreatedEvent{} },
		},
		{
			EventType:      enums.EventProductionOrderAdvanced,
			AggregateType:  enums.AggregateProductionOrder,
			PayloadFactory: func() interface{} { return &payloads.ProductionOrderAdvancedEvent{} },
		},
		{
			EventType:      enums.EventDeadlineApproaching,
			AggregateType:  enums.AggregateQuote,
			PayloadFactory: func() interface{} { return &payloads.DeadlineApproachingEvent{} },
		},
		{
			EventType:      enums.EventWorkloadThreshold,
			AggregateType:  enums.AggregateUser,
			PayloadFactory: func() interface{} { return &payloads.WorkloadThresholdEvent{} },
		},
	} {
		desc.Topic = domain
		reg.register(desc)
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventEmailRequested,
		AggregateType:  enums.AggregateNotification,
		Topic:          cfg.EmailTopic,
		PayloadFactory: func() interface{} { return &payloads.EmailRequestedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists every distinct topic the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	topics := []string{}
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
