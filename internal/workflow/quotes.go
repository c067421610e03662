package workflow

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GenerateQuote creates a DRAFT quote for an inquiry whose items are all costed
// and approved where needed. On missing prerequisites nothing is written and the
// error details list the blocking items.
func (e *Engine) GenerateQuote(ctx context.Context, inquiryID uuid.UUID, validityDays int, actor permissions.Actor) (*models.Quote, error) {
	var out *models.Quote
	err := e.run(ctx, "generate_quote", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceQuote, permissions.ActionCreate); err != nil {
			return err
		}
		if validityDays < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "validity days must not be negative")
		}
		if validityDays == 0 {
			validityDays = e.cfg.QuoteValidityDays
		}

		repo := e.repo.WithTx(tx)
		inquiry, err := repo.LockInquiry(ctx, inquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, inquiryID)
		}
		if err := requireInquiryIn(inquiry.ID, inquiry.Status, string(enums.InquiryStatusQuoted), enums.InquiryStatusAssigned, enums.InquiryStatusQuoted); err != nil {
			return err
		}
		open, err := repo.HasOpenQuote(ctx, inquiry.ID)
		if err != nil {
			return writeErr(err, "check open quotes")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "inquiry already has an open quote").
				WithDetails(map[string]any{"inquiryId": inquiry.ID})
		}

		items, total, err := e.quoteEligibleItems(ctx, repo, inquiry.ID)
		if err != nil {
			return err
		}

		now := e.now()
		number, err := e.nextNumber(ctx, "Q", quoteSequence, now)
		if err != nil {
			return err
		}
		quote := &models.Quote{
			InquiryID:   inquiry.ID,
			QuoteNumber: number,
			Total:       total,
			Status:      enums.QuoteStatusDraft,
			ValidUntil:  now.AddDate(0, 0, validityDays),
			CreatedBy:   actor.UserID,
		}
		if err := repo.CreateQuote(ctx, quote); err != nil {
			if db.IsUniqueViolationOf(err, "ux_quotes_quote_number", "quotes.quote_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "quote number already used").
					WithDetails(map[string]any{"quoteNumber": number})
			}
			return writeErr(err, "create quote")
		}

		if inquiry.Status != enums.InquiryStatusQuoted {
			if err := e.moveInquiry(ctx, tx, fx, repo, inquiry, enums.InquiryStatusQuoted, actor, "", map[string]any{"total_amount": total}); err != nil {
				return err
			}
		} else if err := repo.UpdateInquiry(ctx, inquiry.ID, map[string]any{"total_amount": total}); err != nil {
			return writeErr(err, "update inquiry total")
		}

		if err := e.record(ctx, tx, actor, "quote.created", EntityQuote, quote.ID, nil, map[string]any{
			"status":      quote.Status,
			"quoteNumber": quote.QuoteNumber,
			"total":       quote.Total,
		}, map[string]any{"inquiryId": inquiry.ID, "itemCount": len(items)}); err != nil {
			return err
		}
		payload := payloads.QuoteCreatedEvent{
			QuoteID:     quote.ID,
			InquiryID:   inquiry.ID,
			QuoteNumber: quote.QuoteNumber,
			Total:       quote.Total,
			ValidUntil:  quote.ValidUntil,
			CreatedBy:   actor.UserID,
		}
		if err := e.emit(ctx, tx, actor, enums.EventQuoteCreated, enums.AggregateQuote, quote.ID, payload); err != nil {
			return err
		}
		fx.event(Event{
			Trigger:    enums.TriggerQuoteCreated,
			EntityType: EntityQuote,
			EntityID:   quote.ID,
			Payload:    payload,
			Actor:      actor,
		})
		fx.moved(EntityQuote, string(quote.Status))
		out = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendQuote moves a DRAFT quote to SENT, locks the cost calculations it prices
// and asks the mailer to deliver it to the customer.
func (e *Engine) SendQuote(ctx context.Context, quoteID uuid.UUID, actor permissions.Actor) (*models.Quote, error) {
	var out *models.Quote
	err := e.run(ctx, "send_quote", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceQuote, permissions.ActionSend); err != nil {
			return err
		}
		repo := e.repo.WithTx(tx)
		quote, err := repo.LockQuote(ctx, quoteID)
		if err != nil {
			return loadErr(err, EntityQuote, quoteID)
		}
		if err := checkQuote(quote.ID, quote.Status, enums.QuoteStatusSent); err != nil {
			return err
		}
		inquiry, err := repo.LockInquiry(ctx, quote.InquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, quote.InquiryID)
		}
		if inquiry.Status.IsTerminal() {
			return pkgerrors.InvalidTransition(EntityInquiry, inquiry.ID.String(), string(inquiry.Status), "QUOTE_SENT")
		}
		items, _, err := e.quoteEligibleItems(ctx, repo, inquiry.ID)
		if err != nil {
			return err
		}
		itemIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			itemIDs = append(itemIDs, item.ID)
		}
		if err := repo.LockCosts(ctx, itemIDs); err != nil {
			return writeErr(err, "lock cost calculations")
		}

		now := e.now()
		if err := repo.UpdateQuote(ctx, quote.ID, map[string]any{"status": enums.QuoteStatusSent, "sent_at": now}); err != nil {
			return writeErr(err, "update quote")
		}
		from := quote.Status
		quote.Status = enums.QuoteStatusSent
		quote.SentAt = &now

		old, updated := statusChange(string(from), string(quote.Status))
		if err := e.record(ctx, tx, actor, "quote.sent", EntityQuote, quote.ID, old, updated, map[string]any{"lockedItemIds": itemIDs}); err != nil {
			return err
		}
		payload := payloads.QuoteSentEvent{
			QuoteID:     quote.ID,
			InquiryID:   inquiry.ID,
			QuoteNumber: quote.QuoteNumber,
			SentAt:      now,
		}
		if err := e.emit(ctx, tx, actor, enums.EventQuoteSent, enums.AggregateQuote, quote.ID, payload); err != nil {
			return err
		}
		fx.moved(EntityQuote, string(quote.Status))

		customer, err := repo.FindCustomer(ctx, inquiry.CustomerID)
		if err != nil && !db.IsNotFound(err) {
			return writeErr(err, "load customer")
		}
		if customer != nil && customer.Email != nil {
			fx.email(notifications.Email{
				To:            []string{*customer.Email},
				Subject:       fmt.Sprintf("Quote %s", quote.QuoteNumber),
				Body:          fmt.Sprintf("Please find quote %s for %q. Total %s, valid until %s.", quote.QuoteNumber, inquiry.Title, quote.Total.StringFixed(2), quote.ValidUntil.Format("2006-01-02")),
				Template:      "quote_sent",
				RelatedEntity: EntityQuote,
				RelatedID:     quote.ID,
			})
		}
		fx.notify(notifications.Message{
			UserID:  inquiry.CreatedBy,
			Type:    enums.NotificationTypeQuoteUpdate,
			Title:   "Quote sent",
			Message: fmt.Sprintf("Quote %s for %q was sent to the customer", quote.QuoteNumber, inquiry.Title),
			Payload: map[string]any{"quoteId": quote.ID, "inquiryId": inquiry.ID},
		})
		out = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordQuoteOutcome records the customer's answer to a SENT quote. ACCEPTED
// approves the inquiry and opens a PENDING production order.
func (e *Engine) RecordQuoteOutcome(ctx context.Context, quoteID uuid.UUID, outcome enums.QuoteStatus, actor permissions.Actor) (*QuoteOutcomeResult, error) {
	var out *QuoteOutcomeResult
	err := e.run(ctx, "record_quote_outcome", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceQuote, permissions.ActionUpdate); err != nil {
			return err
		}
		if !outcome.IsOutcome() {
			return pkgerrors.New(pkgerrors.CodeValidation, "outcome must be ACCEPTED, REJECTED or EXPIRED")
		}
		repo := e.repo.WithTx(tx)
		quote, err := repo.LockQuote(ctx, quoteID)
		if err != nil {
			return loadErr(err, EntityQuote, quoteID)
		}
		result, err := e.applyOutcome(ctx, tx, fx, repo, quote, outcome, actor)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireQuote expires a SENT quote whose validity has passed. It runs as the
// system actor.
func (e *Engine) ExpireQuote(ctx context.Context, quoteID uuid.UUID) error {
	actor := permissions.SystemActor()
	return e.run(ctx, "expire_quote", func(tx *gorm.DB, fx *effects) error {
		repo := e.repo.WithTx(tx)
		quote, err := repo.LockQuote(ctx, quoteID)
		if err != nil {
			return loadErr(err, EntityQuote, quoteID)
		}
		if quote.Status == enums.QuoteStatusSent && !quote.ValidUntil.Before(e.now()) {
			return pkgerrors.New(pkgerrors.CodeConflict, "quote is still valid").
				WithDetails(map[string]any{"quoteId": quote.ID, "validUntil": quote.ValidUntil})
		}
		_, err = e.applyOutcome(ctx, tx, fx, repo, quote, enums.QuoteStatusExpired, actor)
		return err
	})
}

// QuotesDueForExpiry lists SENT quotes whose validity ended before now.
func (e *Engine) QuotesDueForExpiry(ctx context.Context, limit int) ([]models.Quote, error) {
	quotes, err := e.repo.ListSentQuotesValidBefore(ctx, e.now(), limit)
	if err != nil {
		return nil, writeErr(err, "list expired quotes")
	}
	return quotes, nil
}

// QuotesExpiringWithin lists SENT quotes that are still valid but expire within window.
func (e *Engine) QuotesExpiringWithin(ctx context.Context, window time.Duration) ([]models.Quote, error) {
	now := e.now()
	quotes, err := e.repo.ListSentQuotesValidBetween(ctx, now, now.Add(window))
	if err != nil {
		return nil, writeErr(err, "list expiring quotes")
	}
	return quotes, nil
}

// GetQuote returns one quote.
func (e *Engine) GetQuote(ctx context.Context, quoteID uuid.UUID, actor permissions.Actor) (*models.Quote, error) {
	if err := e.authorize(actor, permissions.ResourceQuote, permissions.ActionRead); err != nil {
		return nil, err
	}
	quote, err := e.repo.FindQuote(ctx, quoteID)
	if err != nil {
		return nil, loadErr(err, EntityQuote, quoteID)
	}
	return quote, nil
}

// RaiseDeadlineApproaching signals that a sent quote expires soon. Callers
// deduplicate; every call emits.
func (e *Engine) RaiseDeadlineApproaching(ctx context.Context, quote models.Quote) error {
	actor := permissions.SystemActor()
	return e.run(ctx, "raise_deadline_approaching", func(tx *gorm.DB, fx *effects) error {
		repo := e.repo.WithTx(tx)
		inquiry, err := repo.LockInquiry(ctx, quote.InquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, quote.InquiryID)
		}
		days := int(math.Ceil(quote.ValidUntil.Sub(e.now()).Hours() / 24))
		if days < 0 {
			days = 0
		}
		payload := payloads.DeadlineApproachingEvent{
			QuoteID:       quote.ID,
			InquiryID:     quote.InquiryID,
			QuoteNumber:   quote.QuoteNumber,
			ValidUntil:    quote.ValidUntil,
			DaysRemaining: days,
		}
		if err := e.emit(ctx, tx, actor, enums.EventDeadlineApproaching, enums.AggregateQuote, quote.ID, payload); err != nil {
			return err
		}
		fx.event(Event{
			Trigger:    enums.TriggerDeadlineApproaching,
			EntityType: EntityQuote,
			EntityID:   quote.ID,
			Payload:    payload,
			Actor:      actor,
		})
		fx.notify(notifications.Message{
			UserID:  inquiry.CreatedBy,
			Type:    enums.NotificationTypeDeadlineApproaching,
			Title:   "Quote expiring soon",
			Message: fmt.Sprintf("Quote %s expires in %d day(s)", quote.QuoteNumber, days),
			Payload: map[string]any{"quoteId": quote.ID, "inquiryId": quote.InquiryID, "daysRemaining": days},
		})
		return nil
	})
}

// RaiseWorkloadThreshold signals that an assignee carries more than the
// overload factor times the average pending load.
func (e *Engine) RaiseWorkloadThreshold(ctx context.Context, ranked assignment.Ranked, average, factor float64) error {
	actor := permissions.SystemActor()
	return e.run(ctx, "raise_workload_threshold", func(tx *gorm.DB, fx *effects) error {
		repo := e.repo.WithTx(tx)
		payload := payloads.WorkloadThresholdEvent{
			AssigneeID:     ranked.ID,
			AssigneeName:   ranked.Name,
			AssigneeRole:   string(ranked.Role),
			PendingCount:   ranked.Workload.Pending,
			AveragePending: average,
			Factor:         factor,
		}
		if err := e.emit(ctx, tx, actor, enums.EventWorkloadThreshold, enums.AggregateUser, ranked.ID, payload); err != nil {
			return err
		}
		fx.event(Event{
			Trigger:    enums.TriggerWorkloadThreshold,
			EntityType: EntityUser,
			EntityID:   ranked.ID,
			Payload:    payload,
			Actor:      actor,
		})
		msgs, err := e.managerMessages(ctx, repo, notifications.Message{
			Type:    enums.NotificationTypeWorkloadAlert,
			Title:   "Workload threshold exceeded",
			Message: fmt.Sprintf("%s has %d pending item(s), above %.1fx the team average of %.1f", ranked.Name, ranked.Workload.Pending, factor, average),
			Payload: map[string]any{"assigneeId": ranked.ID, "pendingCount": ranked.Workload.Pending},
		})
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			fx.notify(msg)
		}
		return nil
	})
}

func (e *Engine) applyOutcome(ctx context.Context, tx *gorm.DB, fx *effects, repo *Repository, quote *models.Quote, outcome enums.QuoteStatus, actor permissions.Actor) (*QuoteOutcomeResult, error) {
	if err := checkQuote(quote.ID, quote.Status, outcome); err != nil {
		return nil, err
	}
	now := e.now()
	if err := repo.UpdateQuote(ctx, quote.ID, map[string]any{"status": outcome, "decided_at": now}); err != nil {
		return nil, writeErr(err, "update quote")
	}
	from := quote.Status
	quote.Status = outcome
	quote.DecidedAt = &now

	old, updated := statusChange(string(from), string(outcome))
	if err := e.record(ctx, tx, actor, "quote.outcome_recorded", EntityQuote, quote.ID, old, updated, nil); err != nil {
		return nil, err
	}
	if err := e.emit(ctx, tx, actor, enums.EventQuoteOutcomeRecorded, enums.AggregateQuote, quote.ID, payloads.QuoteOutcomeRecordedEvent{
		QuoteID:   quote.ID,
		InquiryID: quote.InquiryID,
		Outcome:   string(outcome),
		DecidedBy: actor.UserID,
	}); err != nil {
		return nil, err
	}
	fx.moved(EntityQuote, string(outcome))

	inquiry, err := repo.LockInquiry(ctx, quote.InquiryID)
	if err != nil {
		return nil, loadErr(err, EntityInquiry, quote.InquiryID)
	}
	fx.notify(notifications.Message{
		UserID:  inquiry.CreatedBy,
		Type:    enums.NotificationTypeQuoteUpdate,
		Title:   "Quote " + string(outcome),
		Message: fmt.Sprintf("Quote %s for %q is now %s", quote.QuoteNumber, inquiry.Title, outcome),
		Payload: map[string]any{"quoteId": quote.ID, "inquiryId": inquiry.ID, "status": outcome},
	})

	result := &QuoteOutcomeResult{Quote: quote}
	if outcome != enums.QuoteStatusAccepted {
		return result, nil
	}

	if err := e.moveInquiry(ctx, tx, fx, repo, inquiry, enums.InquiryStatusApproved, actor, "", nil); err != nil {
		return nil, err
	}
	order, err := e.openProductionOrder(ctx, tx, fx, repo, quote, inquiry, actor)
	if err != nil {
		return nil, err
	}
	result.ProductionOrder = order
	return result, nil
}

// quoteEligibleItems loads the inquiry items and verifies every one is costed
// and, where required, approved by its latest approval. It returns the items
// and the summed total.
func (e *Engine) quoteEligibleItems(ctx context.Context, repo *Repository, inquiryID uuid.UUID) ([]models.InquiryItem, decimal.Decimal, error) {
	items, err := repo.ListItems(ctx, inquiryID)
	if err != nil {
		return nil, decimal.Zero, writeErr(err, "load inquiry items")
	}
	if len(items) == 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "inquiry has no items")
	}

	costIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.CostCalculation != nil {
			costIDs = append(costIDs, item.CostCalculation.ID)
		}
	}
	latest, err := repo.LatestApprovals(ctx, costIDs)
	if err != nil {
		return nil, decimal.Zero, writeErr(err, "load approvals")
	}

	missing := MissingPrerequisites{
		MissingCostItemIDs:     []uuid.UUID{},
		MissingApprovalItemIDs: []uuid.UUID{},
	}
	total := decimal.Zero
	for _, item := range items {
		calc := item.CostCalculation
		if item.Status != enums.InquiryItemStatusCosted || calc == nil {
			missing.MissingCostItemIDs = append(missing.MissingCostItemIDs, item.ID)
			continue
		}
		if calc.RequiresApproval {
			approval, ok := latest[calc.ID]
			if !ok || approval.Status != enums.ApprovalStatusApproved {
				missing.MissingApprovalItemIDs = append(missing.MissingApprovalItemIDs, item.ID)
				continue
			}
		}
		total = total.Add(calc.Total)
	}
	if !missing.empty() {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quote prerequisites missing").WithDetails(missing)
	}
	return items, total, nil
}
