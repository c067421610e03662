package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

func TestNewEnvelopeDefaults(t *testing.T) {
	actor := &ActorRef{UserID: uuid.New(), Role: string(enums.UserRoleSales)}
	envelope, err := newEnvelope(DomainEvent{
		EventType: enums.EventQuoteSent,
		Actor:     actor,
		Data:      map[string]string{"quoteNumber": "Q-2026-0007"},
	})
	require.NoError(t, err)
	require.Equal(t, currentVersion, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
	require.Equal(t, time.UTC, envelope.OccurredAt.Location())
	require.Equal(t, actor, envelope.Actor)
	require.JSONEq(t, `{"quoteNumber":"Q-2026-0007"}`, string(envelope.Data))
}

func TestNewEnvelopeRejectsUnencodableData(t *testing.T) {
	_, err := newEnvelope(DomainEvent{EventType: enums.EventQuoteSent, Data: make(chan int)})
	require.Error(t, err)
}

func TestDecodeEnvelope(t *testing.T) {
	built, err := newEnvelope(DomainEvent{EventType: enums.EventQuoteSent, Data: map[string]int{"n": 1}})
	require.NoError(t, err)
	raw, err := json.Marshal(built)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, built.EventID, decoded.EventID)

	_, err = DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":null}`))
	require.True(t, errors.Is(err, ErrEmptyEventData))

	_, err = DecodeEnvelope([]byte(`{"version":2,"eventId":"x","data":{}}`))
	require.ErrorContains(t, err, "not supported")

	_, err = DecodeEnvelope([]byte(`not json`))
	require.ErrorContains(t, err, "decode envelope")
}
