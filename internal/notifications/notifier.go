package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Message is an in-app notification for one user.
type Message struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Payload map[string]any
}

// Email is a request for the external mailer. One email_requested event is
// queued per recipient.
type Email struct {
	To            []string
	Subject       string
	Body          string
	Template      string
	RelatedEntity string
	RelatedID     uuid.UUID
}

// Notifier delivers in-app notifications and queues outbound email. Delivery
// is best effort: callers log the returned DEPENDENCY_ERROR and move on.
type Notifier struct {
	repo   Repository
	outbox outboxEmitter
	tx     txRunner
	logg   *logger.Logger
}

// NewNotifier wires the notifier dependencies.
func NewNotifier(repo Repository, emitter outboxEmitter, tx txRunner, logg *logger.Logger) (*Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Notifier{repo: repo, outbox: emitter, tx: tx, logg: logg}, nil
}

// Notify persists every valid message in one transaction. Messages without a
// recipient or with an unknown type are logged and skipped.
func (n *Notifier) Notify(ctx context.Context, msgs ...Message) error {
	rows := make([]models.Notification, 0, len(msgs))
	for _, msg := range msgs {
		row, err := msg.row()
		if err != nil {
			n.logg.Warn(n.logg.WithFields(ctx, map[string]any{
				"error":   err.Error(),
				"user_id": msg.UserID.String(),
				"type":    string(msg.Type),
			}), "notification skipped")
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return n.repo.WithTx(tx).CreateMany(ctx, rows)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver notifications")
	}

	n.logg.Debug(n.logg.WithField(ctx, "count", len(rows)), "notifications delivered")
	return nil
}

func (m Message) row() (models.Notification, error) {
	if m.UserID == uuid.Nil {
		return models.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !m.Type.IsValid() {
		return models.Notification{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid notification type %q", m.Type)
	}
	row := models.Notification{
		UserID:  m.UserID,
		Type:    m.Type,
		Title:   m.Title,
		Message: m.Message,
	}
	if len(m.Payload) > 0 {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return models.Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode notification payload")
		}
		row.Payload = raw
	}
	return row, nil
}

// SendEmail queues an email_requested event per recipient for the outbox relay.
func (n *Notifier) SendEmail(ctx context.Context, email Email) error {
	recipients := make([]string, 0, len(email.To))
	for _, to := range email.To {
		if to = strings.TrimSpace(to); to != "" {
			recipients = append(recipients, to)
		}
	}
	if len(recipients) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "email recipient required")
	}

	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, to := range recipients {
			event := outbox.DomainEvent{
				EventType:     enums.EventEmailRequested,
				AggregateType: enums.AggregateNotification,
				AggregateID:   email.RelatedID,
				Data: payloads.EmailRequestedEvent{
					To:            to,
					Subject:       email.Subject,
					Body:          email.Body,
					Template:      email.Template,
					RelatedEntity: email.RelatedEntity,
					RelatedID:     email.RelatedID,
				},
			}
			if err := n.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue email")
	}
	return nil
}
