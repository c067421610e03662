package workflow

import (
	"context"

	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditSink interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Notifier delivers best-effort notifications after commit.
type Notifier interface {
	Notify(ctx context.Context, msgs ...notifications.Message) error
	SendEmail(ctx context.Context, email notifications.Email) error
}

// Sequencer hands out yearly counters for quote and production order numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, name string, year int) (int64, error)
}

// Dispatcher receives workflow events once the transaction that produced them
// has committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}
