package workflow

import (
	"context"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateInquiry stores a DRAFT inquiry with its items for an existing customer.
func (e *Engine) CreateInquiry(ctx context.Context, input CreateInquiryInput, actor permissions.Actor) (*models.Inquiry, error) {
	var created *models.Inquiry
	err := e.run(ctx, "create_inquiry", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceInquiry, permissions.ActionCreate); err != nil {
			return err
		}
		if actor.UserID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "inquiries need a creating user")
		}
		if err := input.normalize(); err != nil {
			return err
		}

		repo := e.repo.WithTx(tx)
		if _, err := repo.FindCustomer(ctx, input.CustomerID); err != nil {
			return loadErr(err, "customer", input.CustomerID)
		}

		inquiry := &models.Inquiry{
			CustomerID:  input.CustomerID,
			Title:       input.Title,
			Description: input.Description,
			CreatedBy:   actor.UserID,
			Status:      enums.InquiryStatusDraft,
			Priority:    input.Priority,
			Deadline:    input.Deadline,
		}
		for _, it := range input.Items {
			inquiry.Items = append(inquiry.Items, models.InquiryItem{
				Name:        it.Name,
				Description: it.Description,
				Quantity:    it.Quantity,
				Unit:        it.Unit,
				Status:      enums.InquiryItemStatusPending,
			})
		}
		if err := repo.CreateInquiry(ctx, inquiry); err != nil {
			return writeErr(err, "create inquiry")
		}

		snapshot := map[string]any{
			"status":     inquiry.Status,
			"title":      inquiry.Title,
			"customerId": inquiry.CustomerID,
			"itemCount":  len(inquiry.Items),
		}
		if err := e.record(ctx, tx, actor, "inquiry.created", EntityInquiry, inquiry.ID, nil, snapshot, nil); err != nil {
			return err
		}
		payload := payloads.InquiryCreatedEvent{
			InquiryID:  inquiry.ID,
			CustomerID: inquiry.CustomerID,
			Title:      inquiry.Title,
			Priority:   string(inquiry.Priority),
			Status:     string(inquiry.Status),
			CreatedBy:  inquiry.CreatedBy,
			ItemCount:  len(inquiry.Items),
		}
		if err := e.emit(ctx, tx, actor, enums.EventInquiryCreated, enums.AggregateInquiry, inquiry.ID, payload); err != nil {
			return err
		}
		fx.event(Event{
			Trigger:    enums.TriggerInquiryCreated,
			EntityType: EntityInquiry,
			EntityID:   inquiry.ID,
			Payload:    payload,
			Actor:      actor,
		})
		fx.moved(EntityInquiry, string(inquiry.Status))
		created = inquiry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SubmitInquiry moves a DRAFT inquiry with at least one item to SUBMITTED.
func (e *Engine) SubmitInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error) {
	var out *models.Inquiry
	err := e.run(ctx, "submit_inquiry", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceInquiry, permissions.ActionSubmit); err != nil {
			return err
		}
		repo := e.repo.WithTx(tx)
		inquiry, err := repo.LockInquiry(ctx, inquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, inquiryID)
		}
		if err := requireOwnerOrElevated(inquiry, actor); err != nil {
			return err
		}
		if err := checkInquiry(inquiry.ID, inquiry.Status, enums.InquiryStatusSubmitted); err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, inquiry.ID)
		if err != nil {
			return writeErr(err, "load inquiry items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "inquiry needs at least one item before it can be submitted").
				WithDetails(map[string]any{"inquiryId": inquiry.ID})
		}

		now := e.now()
		if err := e.moveInquiry(ctx, tx, fx, repo, inquiry, enums.InquiryStatusSubmitted, actor, "", map[string]any{"submitted_at": now}); err != nil {
			return err
		}
		inquiry.SubmittedAt = &now
		out = inquiry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelInquiry cancels any non-terminal inquiry.
func (e *Engine) CancelInquiry(ctx context.Context, inquiryID uuid.UUID, reason string, actor permissions.Actor) (*models.Inquiry, error) {
	var out *models.Inquiry
	err := e.run(ctx, "cancel_inquiry", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceInquiry, permissions.ActionCancel); err != nil {
			return err
		}
		repo := e.repo.WithTx(tx)
		inquiry, err := repo.LockInquiry(ctx, inquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, inquiryID)
		}
		if err := requireOwnerOrElevated(inquiry, actor); err != nil {
			return err
		}
		if err := checkInquiry(inquiry.ID, inquiry.Status, enums.InquiryStatusCancelled); err != nil {
			return err
		}

		now := e.now()
		updates := map[string]any{"cancelled_at": now}
		if reason != "" {
			updates["cancel_reason"] = reason
			inquiry.CancelNote = &reason
		}
		if err := e.moveInquiry(ctx, tx, fx, repo, inquiry, enums.InquiryStatusCancelled, actor, reason, updates); err != nil {
			return err
		}
		inquiry.CancelledAt = &now
		out = inquiry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetInquiry returns the inquiry with its items and cost calculations.
func (e *Engine) GetInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error) {
	if err := e.authorize(actor, permissions.ResourceInquiry, permissions.ActionRead); err != nil {
		return nil, err
	}
	inquiry, err := e.repo.FindInquiry(ctx, inquiryID)
	if err != nil {
		return nil, loadErr(err, EntityInquiry, inquiryID)
	}
	return inquiry, nil
}

// ListInquiries pages inquiries newest first.
func (e *Engine) ListInquiries(ctx context.Context, params ListInquiriesParams, actor permissions.Actor) (*pagination.Page[models.Inquiry], error) {
	if err := e.authorize(actor, permissions.ResourceInquiry, permissions.ActionRead); err != nil {
		return nil, err
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter "+string(params.Status))
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := InquiryFilter{Status: params.Status, CustomerID: params.CustomerID}
	if params.Mine {
		filter.CreatedBy = actor.UserID
	}
	rows, err := e.repo.ListInquiries(ctx, filter, pagination.Params{Limit: params.Limit, Cursor: params.Cursor})
	if err != nil {
		return nil, writeErr(err, "list inquiries")
	}
	page := pagination.Build(rows, params.Limit, func(i models.Inquiry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
	})
	return &page, nil
}

// PendingItemIDs lists the unassigned items of an inquiry.
func (e *Engine) PendingItemIDs(ctx context.Context, inquiryID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := e.repo.PendingItemIDs(ctx, inquiryID)
	if err != nil {
		return nil, writeErr(err, "load pending items")
	}
	return ids, nil
}

// moveInquiry applies an inquiry transition with its audit row, outbox event
// and automation trigger. extra holds additional columns to update.
func (e *Engine) moveInquiry(ctx context.Context, tx *gorm.DB, fx *effects, repo *Repository, inquiry *models.Inquiry, to enums.InquiryStatus, actor permissions.Actor, reason string, extra map[string]any) error {
	from := inquiry.Status
	if err := checkInquiry(inquiry.ID, from, to); err != nil {
		return err
	}
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	if err := repo.UpdateInquiry(ctx, inquiry.ID, updates); err != nil {
		return writeErr(err, "update inquiry status")
	}
	inquiry.Status = to

	old, updated := statusChange(string(from), string(to))
	var meta map[string]any
	if reason != "" {
		meta = map[string]any{"reason": reason}
	}
	if err := e.record(ctx, tx, actor, "inquiry.status_changed", EntityInquiry, inquiry.ID, old, updated, meta); err != nil {
		return err
	}
	payload := payloads.InquiryStatusChangedEvent{
		InquiryID:      inquiry.ID,
		CustomerID:     inquiry.CustomerID,
		PreviousStatus: string(from),
		Status:         string(to),
		Priority:       string(inquiry.Priority),
		ChangedBy:      actor.UserID,
		Reason:         reason,
	}
	if err := e.emit(ctx, tx, actor, enums.EventInquiryStatusChanged, enums.AggregateInquiry, inquiry.ID, payload); err != nil {
		return err
	}
	fx.event(Event{
		Trigger:    enums.TriggerInquiryStatusChanged,
		EntityType: EntityInquiry,
		EntityID:   inquiry.ID,
		Payload:    payload,
		Actor:      actor,
	})
	fx.moved(EntityInquiry, string(to))
	return nil
}

func requireOwnerOrElevated(inquiry *models.Inquiry, actor permissions.Actor) error {
	if actor.IsElevated() || inquiry.CreatedBy == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the inquiry creator or a manager may change this inquiry")
}
