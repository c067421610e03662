package workflow

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var productionTimestamps = map[enums.ProductionOrderStatus]string{
	enums.ProductionOrderStatusInProduction: "started_at",
	enums.ProductionOrderStatusCompleted:    "completed_at",
	enums.ProductionOrderStatusShipped:      "shipped_at",
	enums.ProductionOrderStatusDelivered:    "delivered_at",
}

// AdvanceProductionOrder moves an order one step forward. Delivery closes the
// inquiry.
func (e *Engine) AdvanceProductionOrder(ctx context.Context, orderID uuid.UUID, next enums.ProductionOrderStatus, actor permissions.Actor) (*models.ProductionOrder, error) {
	var out *models.ProductionOrder
	err := e.run(ctx, "advance_production_order", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceProductionOrder, permissions.ActionAdvance); err != nil {
			return err
		}
		if !next.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid production order status "+string(next))
		}
		repo := e.repo.WithTx(tx)
		order, err := repo.LockProductionOrder(ctx, orderID)
		if err != nil {
			return loadErr(err, EntityProductionOrder, orderID)
		}
		if err := checkProductionOrder(order.ID, order.Status, next); err != nil {
			return err
		}

		now := e.now()
		updates := map[string]any{"status": next}
		if column, ok := productionTimestamps[next]; ok {
			updates[column] = now
		}
		if err := repo.UpdateProductionOrder(ctx, order.ID, updates); err != nil {
			return writeErr(err, "update production order")
		}
		from := order.Status
		order.Status = next
		switch next {
		case enums.ProductionOrderStatusInProduction:
			order.StartedAt = &now
		case enums.ProductionOrderStatusCompleted:
			order.CompletedAt = &now
		case enums.ProductionOrderStatusShipped:
			order.ShippedAt = &now
		case enums.ProductionOrderStatusDelivered:
			order.DeliveredAt = &now
		}

		old, updated := statusChange(string(from), string(next))
		if err := e.record(ctx, tx, actor, "production_order.advanced", EntityProductionOrder, order.ID, old, updated, nil); err != nil {
			return err
		}
		if err := e.emit(ctx, tx, actor, enums.EventProductionOrderAdvanced, enums.AggregateProductionOrder, order.ID, payloads.ProductionOrderAdvancedEvent{
			ProductionOrderID: order.ID,
			InquiryID:         order.InquiryID,
			OrderNumber:       order.OrderNumber,
			PreviousStatus:    string(from),
			Status:            string(next),
		}); err != nil {
			return err
		}
		fx.moved(EntityProductionOrder, string(next))

		inquiry, err := repo.LockInquiry(ctx, order.InquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, order.InquiryID)
		}
		if next == enums.ProductionOrderStatusDelivered {
			if err := e.moveInquiry(ctx, tx, fx, repo, inquiry, enums.InquiryStatusClosed, actor, "", map[string]any{"closed_at": now}); err != nil {
				return err
			}
		}

		msg := notifications.Message{
			Type:    enums.NotificationTypeProductionUpdate,
			Title:   "Production order " + string(next),
			Message: fmt.Sprintf("Production order %s for %q is now %s", order.OrderNumber, inquiry.Title, next),
			Payload: map[string]any{"productionOrderId": order.ID, "inquiryId": inquiry.ID, "status": next},
		}
		recipients := []notifications.Message{withRecipient(msg, inquiry.CreatedBy)}
		if next == enums.ProductionOrderStatusCompleted || next == enums.ProductionOrderStatusDelivered {
			managers, err := e.managerMessages(ctx, repo, msg)
			if err != nil {
				return err
			}
			for _, m := range managers {
				if m.UserID != inquiry.CreatedBy {
					recipients = append(recipients, m)
				}
			}
		}
		for _, m := range recipients {
			fx.notify(m)
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProductionOrder returns one production order.
func (e *Engine) GetProductionOrder(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.ProductionOrder, error) {
	if err := e.authorize(actor, permissions.ResourceProductionOrder, permissions.ActionRead); err != nil {
		return nil, err
	}
	order, err := e.repo.FindProductionOrder(ctx, orderID)
	if err != nil {
		return nil, loadErr(err, EntityProductionOrder, orderID)
	}
	return order, nil
}

func (e *Engine) openProductionOrder(ctx context.Context, tx *gorm.DB, fx *effects, repo *Repository, quote *models.Quote, inquiry *models.Inquiry, actor permissions.Actor) (*models.ProductionOrder, error) {
	number, err := e.nextNumber(ctx, "PO", productionOrderSequence, e.now())
	if err != nil {
		return nil, err
	}
	order := &models.ProductionOrder{
		QuoteID:     quote.ID,
		InquiryID:   inquiry.ID,
		OrderNumber: number,
		Status:      enums.ProductionOrderStatusPending,
	}
	if err := repo.CreateProductionOrder(ctx, order); err != nil {
		if db.IsUniqueViolationOf(err, "ux_production_orders_quote", "production_orders.quote_id") ||
			db.IsUniqueViolationOf(err, "ux_production_orders_order_number", "production_orders.order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "production order already exists")
		}
		return nil, writeErr(err, "create production order")
	}

	if err := e.record(ctx, tx, actor, "production_order.created", EntityProductionOrder, order.ID, nil, map[string]any{
		"status":      order.Status,
		"orderNumber": order.OrderNumber,
	}, map[string]any{"quoteId": quote.ID, "inquiryId": inquiry.ID}); err != nil {
		return nil, err
	}
	payload := payloads.ProductionOrderCreatedEvent{
		ProductionOrderID: order.ID,
		QuoteID:           quote.ID,
		InquiryID:         inquiry.ID,
		OrderNumber:       order.OrderNumber,
		Total:             quote.Total,
	}
	if err := e.emit(ctx, tx, actor, enums.EventProductionOrderCreated, enums.AggregateProductionOrder, order.ID, payload); err != nil {
		return nil, err
	}
	fx.event(Event{
		Trigger:    enums.TriggerProductionOrderCreated,
		EntityType: EntityProductionOrder,
		EntityID:   order.ID,
		Payload:    payload,
		Actor:      actor,
	})
	fx.moved(EntityProductionOrder, string(order.Status))

	production, err := repo.ActiveUserIDs(ctx, enums.UserRoleProduction)
	if err != nil {
		return nil, writeErr(err, "load production users")
	}
	for _, userID := range production {
		fx.notify(notifications.Message{
			UserID:  userID,
			Type:    enums.NotificationTypeProductionUpdate,
			Title:   "New production order",
			Message: fmt.Sprintf("Production order %s was opened for %q", order.OrderNumber, inquiry.Title),
			Payload: map[string]any{"productionOrderId": order.ID, "inquiryId": inquiry.ID},
		})
	}
	return order, nil
}

func withRecipient(msg notifications.Message, userID uuid.UUID) notifications.Message {
	msg.UserID = userID
	return msg
}
