package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/metrics"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Config carries the tunables the engine reads on every command.
type Config struct {
	ApprovalThreshold decimal.Decimal
	QuoteValidityDays int
}

// Params wires the engine dependencies.
type Params struct {
	Repo      *Repository
	Tx        txRunner
	Outbox    outboxEmitter
	Audit     auditSink
	Notifier  Notifier
	Sequencer Sequencer
	Policy    *permissions.Policy
	Config    Config
	Metrics   *metrics.WorkflowMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

// Engine owns every state transition of inquiries, items, cost calculations,
// approvals, quotes and production orders.
type Engine struct {
	repo       *Repository
	tx         txRunner
	outbox     outboxEmitter
	audit      auditSink
	notifier   Notifier
	sequencer  Sequencer
	policy     *permissions.Policy
	cfg        Config
	metrics    *metrics.WorkflowMetrics
	logg       *logger.Logger
	now        func() time.Time
	dispatcher Dispatcher
}

// NewEngine validates and stores the dependencies.
func NewEngine(p Params) (*Engine, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("workflow repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Audit == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Sequencer == nil {
		return nil, fmt.Errorf("sequencer required")
	}
	if p.Policy == nil {
		return nil, fmt.Errorf("permission policy required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Config.ApprovalThreshold.IsNegative() {
		return nil, fmt.Errorf("approval threshold must not be negative")
	}
	if p.Config.QuoteValidityDays <= 0 {
		return nil, fmt.Errorf("quote validity days must be positive")
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		repo:      p.Repo,
		tx:        p.Tx,
		outbox:    p.Outbox,
		audit:     p.Audit,
		notifier:  p.Notifier,
		sequencer: p.Sequencer,
		policy:    p.Policy,
		cfg:       p.Config,
		metrics:   p.Metrics,
		logg:      p.Logger,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

// UseDispatcher attaches the automation engine. It is set after construction
// because automation actions call back into the engine.
func (e *Engine) UseDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// run executes fn in one transaction and, once it commits, hands the collected
// effects to automation and the notifier.
func (e *Engine) run(ctx context.Context, operation string, fn func(tx *gorm.DB, fx *effects) error) error {
	fx := &effects{}
	if err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(tx, fx)
	}); err != nil {
		e.metrics.IncRejection(operation, string(pkgerrors.CodeOf(err)))
		return err
	}
	e.afterCommit(ctx, fx)
	return nil
}

func (e *Engine) afterCommit(ctx context.Context, fx *effects) {
	for _, t := range fx.transitions {
		e.metrics.IncTransition(t.entity, t.status)
	}
	if e.dispatcher != nil {
		for _, ev := range fx.events {
			e.dispatcher.Dispatch(ctx, ev)
		}
	}
	if len(fx.messages) > 0 {
		if err := e.notifier.Notify(ctx, fx.messages...); err != nil {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"error": err.Error(),
				"count": len(fx.messages),
			}), "notification delivery failed")
		}
	}
	for _, email := range fx.emails {
		if err := e.notifier.SendEmail(ctx, email); err != nil {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"error":          err.Error(),
				"related_entity": email.RelatedEntity,
				"related_id":     email.RelatedID.String(),
			}), "email request failed")
		}
	}
}

// authorize rejects anonymous actors and missing grants. The system actor is
// trusted for the scheduled operations that accept it.
func (e *Engine) authorize(actor permissions.Actor, resource, action string) error {
	if !actor.Valid() && !actor.IsSystem() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return e.policy.Authorize(actor.Role, resource, action)
}

func requireElevated(actor permissions.Actor, operation string) error {
	if actor.IsElevated() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, operation+" requires a manager or admin")
}

func (e *Engine) record(ctx context.Context, tx *gorm.DB, actor permissions.Actor, action, entity string, id uuid.UUID, old, updated any, meta map[string]any) error {
	return e.audit.Record(ctx, tx, audit.Entry{
		Action:   action,
		Entity:   entity,
		EntityID: id,
		ActorID:  actor.UserID,
		Old:      old,
		New:      updated,
		Metadata: meta,
	})
}

func (e *Engine) emit(ctx context.Context, tx *gorm.DB, actor permissions.Actor, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, id uuid.UUID, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   id,
		Data:          data,
		OccurredAt:    e.now(),
	}
	if !actor.IsSystem() {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue "+string(eventType))
	}
	return nil
}

// managerMessages fans one message out to every active manager.
func (e *Engine) managerMessages(ctx context.Context, repo *Repository, msg notifications.Message) ([]notifications.Message, error) {
	ids, err := repo.ActiveUserIDs(ctx, enums.UserRoleManager)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load managers")
	}
	out := make([]notifications.Message, 0, len(ids))
	for _, id := range ids {
		m := msg
		m.UserID = id
		out = append(out, m)
	}
	return out, nil
}

func loadErr(err error, entity string, id uuid.UUID) error {
	if db.IsNotFound(err) {
		return pkgerrors.NotFound(entity, id.String())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func writeErr(err error, what string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, what)
}

func statusChange(from, to string) (map[string]any, map[string]any) {
	return map[string]any{"status": from}, map[string]any{"status": to}
}
