package main

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
)

const dlqListLimit = 200

type deadLetters interface {
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	List(ctx context.Context, reason enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

func requeue(ctx context.Context, logg *logger.Logger, dlq deadLetters, raw string) error {
	eventID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	entry, err := dlq.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if entry == nil {
		return outbox.ErrNotDeadLettered
	}
	if err := dlq.Requeue(ctx, eventID); err != nil {
		return err
	}
	logg.Info(withEntry(ctx, logg, entry), "event requeued from dlq")
	return nil
}

// listDeadLetters logs one line per parked event, newest first.
func listDeadLetters(ctx context.Context, logg *logger.Logger, dlq deadLetters, filter string) error {
	reason, err := reasonFilter(filter)
	if err != nil {
		return err
	}
	entries, err := dlq.List(ctx, reason, dlqListLimit)
	if err != nil {
		return err
	}
	for i := range entries {
		entryCtx := withEntry(ctx, logg, &entries[i])
		if entries[i].ErrorMessage != nil {
			entryCtx = logg.WithField(entryCtx, "error", *entries[i].ErrorMessage)
		}
		logg.Info(entryCtx, "dead-lettered event")
	}
	logg.Info(logg.WithField(ctx, "count", len(entries)), "dlq listing complete")
	return nil
}

// reasonFilter maps "all" to the empty reason, which List treats as no filter.
func reasonFilter(raw string) (enums.OutboxDLQErrorReason, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "all" {
		return "", nil
	}
	return enums.ParseOutboxDLQErrorReason(raw)
}

func withEntry(ctx context.Context, logg *logger.Logger, entry *models.OutboxDLQ) context.Context {
	return logg.WithFields(ctx, map[string]any{
		"eventId":     entry.EventID.String(),
		"eventType":   string(entry.EventType),
		"aggregateId": entry.AggregateID.String(),
		"reason":      string(entry.ErrorReason),
		"attempts":    entry.AttemptCount,
		"failedAt":    entry.FailedAt,
	})
}
