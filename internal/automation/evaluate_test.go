package automation

import (
	"testing"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func costEvent(t *testing.T) (workflow.Event, Document) {
	t.Helper()
	actor := permissions.Actor{UserID: uuid.New(), Role: enums.UserRoleVP}
	payload := payloads.CostCalculatedEvent{
		InquiryID:         uuid.New(),
		ItemID:            uuid.New(),
		CostCalculationID: uuid.New(),
		AssigneeID:        actor.UserID,
		Total:             decimal.RequireFromString("12500.50"),
		MarginPercent:     decimal.NewFromInt(15),
		RequiresApproval:  true,
	}
	event := workflow.Event{
		Trigger:    enums.TriggerCostCalculated,
		EntityType: workflow.EntityItem,
		EntityID:   payload.ItemID,
		Payload:    payload,
		Actor:      actor,
	}
	doc, err := NewDocument(event)
	require.NoError(t, err)
	return event, doc
}

func TestMatchesEvaluatesConditionsOverPayload(t *testing.T) {
	event, doc := costEvent(t)
	schema, ok := SchemaFor(enums.TriggerCostCalculated)
	require.True(t, ok)
	payload := event.Payload.(payloads.CostCalculatedEvent)

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"decimal greater than", Condition{Field: "total", Operator: enums.OperatorGreaterThan, Value: float64(10000)}, true},
		{"decimal less than", Condition{Field: "total", Operator: enums.OperatorLessThan, Value: "12500.50"}, false},
		{"decimal equals string", Condition{Field: "total", Operator: enums.OperatorEquals, Value: "12500.5"}, true},
		{"bool equals", Condition{Field: "requiresApproval", Operator: enums.OperatorEquals, Value: true}, true},
		{"uuid equals any case", Condition{Field: "itemId", Operator: enums.OperatorEquals, Value: payload.ItemID.String()}, true},
		{"dotted actor role", Condition{Field: "actor.role", Operator: enums.OperatorIn, Value: []any{"VPP", "VP"}}, true},
		{"dotted entity type", Condition{Field: "entity.type", Operator: enums.OperatorEquals, Value: "inquiry"}, false},
		{"unknown field", Condition{Field: "nope", Operator: enums.OperatorEquals, Value: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Matches(schema, []Condition{tc.cond}, doc))
		})
	}

	require.True(t, Matches(schema, nil, doc), "no conditions always match")
	require.False(t, Matches(schema, []Condition{
		{Field: "requiresApproval", Operator: enums.OperatorEquals, Value: false},
		{Field: "total", Operator: enums.OperatorGreaterThan, Value: float64(1)},
	}, doc))
}

func TestMatchesListAndTimeFields(t *testing.T) {
	itemA, itemB := uuid.New(), uuid.New()
	doc, err := NewDocument(workflow.Event{
		Trigger:    enums.TriggerItemAssigned,
		EntityType: workflow.EntityInquiry,
		EntityID:   uuid.New(),
		Payload: payloads.ItemsAssignedEvent{
			InquiryID: uuid.New(),
			ItemIDs:   []uuid.UUID{itemA, itemB},
			ItemCount: 2,
			Priority:  "URGENT",
		},
	})
	require.NoError(t, err)
	schema, _ := SchemaFor(enums.TriggerItemAssigned)

	require.True(t, Matches(schema, []Condition{{Field: "itemIds", Operator: enums.OperatorContains, Value: itemB.String()}}, doc))
	require.False(t, Matches(schema, []Condition{{Field: "itemIds", Operator: enums.OperatorContains, Value: uuid.NewString()}}, doc))
	require.True(t, Matches(schema, []Condition{{Field: "priority", Operator: enums.OperatorContains, Value: "URG"}}, doc))
	require.True(t, Matches(schema, []Condition{{Field: "itemCount", Operator: enums.OperatorEquals, Value: float64(2)}}, doc))
	require.ElementsMatch(t, []uuid.UUID{itemA, itemB}, doc.UUIDs("itemIds"))

	validUntil := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	quoteDoc, err := NewDocument(workflow.Event{
		Trigger: enums.TriggerQuoteCreated,
		Payload: payloads.QuoteCreatedEvent{QuoteID: uuid.New(), ValidUntil: validUntil, Total: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)
	quoteSchema, _ := SchemaFor(enums.TriggerQuoteCreated)
	require.True(t, Matches(quoteSchema, []Condition{{Field: "validUntil", Operator: enums.OperatorLessThan, Value: "2026-05-01T00:00:00Z"}}, quoteDoc))
	require.False(t, Matches(quoteSchema, []Condition{{Field: "validUntil", Operator: enums.OperatorGreaterThan, Value: "2026-05-01T00:00:00Z"}}, quoteDoc))
}

func TestDocumentRenderAndLookup(t *testing.T) {
	event, doc := costEvent(t)
	payload := event.Payload.(payloads.CostCalculatedEvent)

	require.Equal(t, "Total 12500.5 for "+payload.ItemID.String()+" by VP",
		doc.Render("Total {{total}} for {{ itemId }} by {{actor.role}}"))
	require.Equal(t, "missing: []", doc.Render("missing: [{{nothing}}]"))

	id, ok := doc.UUID("costCalculationId")
	require.True(t, ok)
	require.Equal(t, payload.CostCalculationID, id)

	_, ok = doc.Lookup("entity.id.deeper")
	require.False(t, ok)
}

func TestPassHaltsOncePerKey(t *testing.T) {
	ctx, p := passFrom(t.Context())
	_, same := passFrom(ctx)
	require.Same(t, p, same)

	key := passKey{trigger: enums.TriggerItemAssigned, entity: uuid.New()}
	for i := 1; i <= 3; i++ {
		admit, count := p.enter(key, 3)
		require.Equal(t, admitted, admit)
		require.Equal(t, i, count)
	}
	admit, _ := p.enter(key, 3)
	require.Equal(t, haltNow, admit)
	admit, _ = p.enter(key, 3)
	require.Equal(t, suppressed, admit)

	other := passKey{trigger: enums.TriggerItemAssigned, entity: uuid.New()}
	admit, _ = p.enter(other, 3)
	require.Equal(t, admitted, admit)
}
