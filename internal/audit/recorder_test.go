package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/quoteflow-backend/internal/repo/repotest"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordWritesSnapshotsInTransaction(t *testing.T) {
	conn := repotest.Open(t)
	rec := NewRecorder()
	entityID := uuid.New()
	actorID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return rec.Record(context.Background(), tx, Entry{
			Action:   "quote.send",
			Entity:   "quote",
			EntityID: entityID,
			ActorID:  actorID,
			Old:      map[string]string{"status": "DRAFT"},
			New:      map[string]string{"status": "SENT"},
			Metadata: map[string]any{"quoteNumber": "Q-2026-000001"},
		})
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, conn.First(&row, "entity_id = ?", entityID).Error)
	require.Equal(t, "quote.send", row.Action)
	require.NotNil(t, row.ActorID)
	require.Equal(t, actorID, *row.ActorID)

	var newData map[string]string
	require.NoError(t, json.Unmarshal(row.NewData, &newData))
	require.Equal(t, "SENT", newData["status"])
}

func TestRecordRollsBackWithCaller(t *testing.T) {
	conn := repotest.Open(t)
	rec := NewRecorder()
	entityID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := rec.Record(context.Background(), tx, Entry{Action: "inquiry.submit", Entity: "inquiry", EntityID: entityID}); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.AuditLog{}).Where("entity_id = ?", entityID).Count(&count).Error)
	require.Zero(t, count)
}

func TestRecordValidatesInput(t *testing.T) {
	rec := NewRecorder()
	err := rec.Record(context.Background(), nil, Entry{Action: "x", Entity: "y", EntityID: uuid.New()})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))

	conn := repotest.Open(t)
	err = rec.Record(context.Background(), conn, Entry{Entity: "quote", EntityID: uuid.New()})
	require.Error(t, err)

	err = rec.Record(context.Background(), conn, Entry{Action: "x", Entity: "quote", EntityID: uuid.New(), New: make(chan int)})
	require.Error(t, err)
}
