package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry describes one mutating operation. Old and New are snapshots encoded as
// JSON; either may be nil.
type Entry struct {
	Action   string
	Entity   string
	EntityID uuid.UUID
	ActorID  uuid.UUID
	Old      any
	New      any
	Metadata map[string]any
}

// Recorder appends audit rows inside the caller's transaction.
type Recorder struct{}

// NewRecorder returns the gorm-backed audit sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record writes entry using tx. A failure must abort the surrounding
// transaction, so callers return the error from their tx callback.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit requires a transaction")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit entry requires action, entity and entity id")
	}

	row := models.AuditLog{
		Action:   entry.Action,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
	}
	if entry.ActorID != uuid.Nil {
		actor := entry.ActorID
		row.ActorID = &actor
	}

	var err error
	if row.OldData, err = snapshot(entry.Old); err != nil {
		return err
	}
	if row.NewData, err = snapshot(entry.New); err != nil {
		return err
	}
	if len(entry.Metadata) > 0 {
		if row.Metadata, err = snapshot(entry.Metadata); err != nil {
			return err
		}
	}

	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "audit sink unavailable")
	}
	return nil
}

func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode audit snapshot %T", v))
	}
	return datatypes.JSON(raw), nil
}
