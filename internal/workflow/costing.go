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

const requestedCosting = "COST_CALCULATION"

// RecordCostCalculation creates or replaces the cost calculation of an item and
// marks the item COSTED. Totals above the approval threshold open a PENDING
// approval unless one is already pending; a total at or below it closes any
// approval still pending for the previous figures.
func (e *Engine) RecordCostCalculation(ctx context.Context, itemID uuid.UUID, input CostInput, actor permissions.Actor) (*models.CostCalculation, error) {
	var out *models.CostCalculation
	err := e.run(ctx, "record_cost_calculation", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceCost, permissions.ActionCreate); err != nil {
			return err
		}
		if err := input.validate(); err != nil {
			return err
		}

		repo := e.repo.WithTx(tx)
		item, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return loadErr(err, EntityItem, itemID)
		}
		inquiry, err := repo.LockInquiry(ctx, item.InquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, item.InquiryID)
		}
		if err := requireInquiryIn(inquiry.ID, inquiry.Status, requestedCosting, enums.InquiryStatusAssigned); err != nil {
			return err
		}
		if err := checkItem(item.ID, item.Status, enums.InquiryItemStatusCosted); err != nil {
			return err
		}
		if !actor.IsElevated() && (item.AssigneeID == nil || *item.AssigneeID != actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the item assignee or a manager may record its cost")
		}

		calc, err := repo.LockCostByItem(ctx, item.ID)
		isNew := false
		switch {
		case db.IsNotFound(err):
			calc = &models.CostCalculation{ItemID: item.ID}
			isNew = true
		case err != nil:
			return writeErr(err, "load cost calculation")
		case calc.Locked:
			return pkgerrors.New(pkgerrors.CodeConflict, "cost calculation is locked by a sent quote").
				WithDetails(map[string]any{"costCalculationId": calc.ID, "itemId": item.ID})
		}

		var old map[string]any
		if !isNew {
			old = costSnapshot(calc)
		}
		total := input.Total()
		calc.CalculatedBy = actor.UserID
		calc.MaterialCost = input.MaterialCost
		calc.LaborCost = input.LaborCost
		calc.OverheadCost = input.OverheadCost
		calc.OtherCost = input.OtherCost
		calc.MarginPercent = input.MarginPercent
		calc.Notes = input.Notes
		calc.Total = total
		calc.RequiresApproval = total.GreaterThan(e.cfg.ApprovalThreshold)

		if isNew {
			err = repo.CreateCost(ctx, calc)
		} else {
			err = repo.SaveCost(ctx, calc)
		}
		if err != nil {
			return writeErr(err, "save cost calculation")
		}

		if item.Status != enums.InquiryItemStatusCosted {
			if err := repo.UpdateItems(ctx, []uuid.UUID{item.ID}, map[string]any{"status": enums.InquiryItemStatusCosted}); err != nil {
				return writeErr(err, "mark item costed")
			}
			item.Status = enums.InquiryItemStatusCosted
			fx.moved(EntityItem, string(enums.InquiryItemStatusCosted))
		}

		if err := e.record(ctx, tx, actor, "cost.recorded", EntityCostCalculation, calc.ID, old, costSnapshot(calc), map[string]any{"itemId": item.ID}); err != nil {
			return err
		}
		assignee := actor.UserID
		if item.AssigneeID != nil {
			assignee = *item.AssigneeID
		}
		payload := payloads.CostCalculatedEvent{
			InquiryID:         inquiry.ID,
			ItemID:            item.ID,
			CostCalculationID: calc.ID,
			AssigneeID:        assignee,
			Total:             calc.Total,
			MarginPercent:     calc.MarginPercent,
			RequiresApproval:  calc.RequiresApproval,
		}
		if err := e.emit(ctx, tx, actor, enums.EventCostCalculated, enums.AggregateInquiryItem, item.ID, payload); err != nil {
			return err
		}
		fx.event(Event{
			Trigger:    enums.TriggerCostCalculated,
			EntityType: EntityItem,
			EntityID:   item.ID,
			Payload:    payload,
			Actor:      actor,
		})

		if calc.RequiresApproval {
			if _, err := e.openApproval(ctx, tx, fx, repo, calc, item, inquiry, actor, ""); err != nil {
				return err
			}
		} else if !isNew {
			if err := e.supersedeApproval(ctx, tx, fx, repo, calc, actor); err != nil {
				return err
			}
		}
		out = calc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestCostApproval opens a PENDING approval for a calculation regardless of
// its total. An approval that is already pending is returned unchanged.
func (e *Engine) RequestCostApproval(ctx context.Context, costCalculationID uuid.UUID, reason string, actor permissions.Actor) (*models.Approval, error) {
	var out *models.Approval
	err := e.run(ctx, "request_cost_approval", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceApproval, permissions.ActionCreate); err != nil {
			return err
		}
		repo := e.repo.WithTx(tx)
		calc, err := repo.LockCost(ctx, costCalculationID)
		if err != nil {
			return loadErr(err, EntityCostCalculation, costCalculationID)
		}
		if calc.Locked {
			return pkgerrors.New(pkgerrors.CodeConflict, "cost calculation is locked by a sent quote").
				WithDetails(map[string]any{"costCalculationId": calc.ID})
		}
		item, err := repo.LockItem(ctx, calc.ItemID)
		if err != nil {
			return loadErr(err, EntityItem, calc.ItemID)
		}
		if item.Status != enums.InquiryItemStatusCosted {
			return pkgerrors.InvalidTransition(EntityItem, item.ID.String(), string(item.Status), "APPROVAL_REQUIRED")
		}
		inquiry, err := repo.LockInquiry(ctx, item.InquiryID)
		if err != nil {
			return loadErr(err, EntityInquiry, item.InquiryID)
		}

		if !calc.RequiresApproval {
			if err := repo.DB(ctx).Model(calc).Update("requires_approval", true).Error; err != nil {
				return writeErr(err, "flag cost calculation")
			}
			calc.RequiresApproval = true
		}
		approval, err := e.openApproval(ctx, tx, fx, repo, calc, item, inquiry, actor, reason)
		if err != nil {
			return err
		}
		out = approval
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveCost records a manager decision on a PENDING approval. A rejection
// sends the item back to ASSIGNED with its assignee kept so it can be re-costed.
func (e *Engine) ApproveCost(ctx context.Context, approvalID uuid.UUID, decision enums.ApprovalStatus, comment string, actor permissions.Actor) (*models.Approval, error) {
	var out *models.Approval
	err := e.run(ctx, "approve_cost", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceApproval, permissions.ActionDecide); err != nil {
			return err
		}
		if err := requireElevated(actor, "deciding approvals"); err != nil {
			return err
		}
		if !decision.IsDecision() {
			return pkgerrors.New(pkgerrors.CodeValidation, "decision must be APPROVED or REJECTED")
		}

		repo := e.repo.WithTx(tx)
		approval, err := repo.LockApproval(ctx, approvalID)
		if err != nil {
			return loadErr(err, EntityApproval, approvalID)
		}
		if approval.Status != enums.ApprovalStatusPending {
			return pkgerrors.InvalidTransition(EntityApproval, approval.ID.String(), string(approval.Status), string(decision))
		}
		calc, err := repo.LockCost(ctx, approval.CostCalculationID)
		if err != nil {
			return loadErr(err, EntityCostCalculation, approval.CostCalculationID)
		}
		if calc.Locked {
			return pkgerrors.New(pkgerrors.CodeConflict, "cost calculation is locked by a sent quote")
		}
		if !calc.RequiresApproval {
			return pkgerrors.New(pkgerrors.CodeConflict, "cost calculation no longer requires approval").
				WithDetails(map[string]any{"approvalId": approval.ID, "costCalculationId": calc.ID})
		}
		item, err := repo.LockItem(ctx, approval.ItemID)
		if err != nil {
			return loadErr(err, EntityItem, approval.ItemID)
		}

		now := e.now()
		updates := map[string]any{
			"status":      decision,
			"approver_id": actor.UserID,
			"decided_at":  now,
		}
		if comment != "" {
			updates["comment"] = comment
			approval.Comment = &comment
		}
		if err := repo.UpdateApproval(ctx, approval.ID, updates); err != nil {
			return writeErr(err, "update approval")
		}
		from := approval.Status
		approval.Status = decision
		approverID := actor.UserID
		approval.ApproverID = &approverID
		approval.DecidedAt = &now
		fx.moved(EntityApproval, string(decision))

		if decision == enums.ApprovalStatusRejected && item.Status == enums.InquiryItemStatusCosted {
			if err := checkItem(item.ID, item.Status, enums.InquiryItemStatusAssigned); err != nil {
				return err
			}
			if err := repo.UpdateItems(ctx, []uuid.UUID{item.ID}, map[string]any{"status": enums.InquiryItemStatusAssigned}); err != nil {
				return writeErr(err, "revert item")
			}
			fx.moved(EntityItem, string(enums.InquiryItemStatusAssigned))
		}

		old, updated := statusChange(string(from), string(decision))
		if err := e.record(ctx, tx, actor, "approval.decided", EntityApproval, approval.ID, old, updated, map[string]any{"itemId": item.ID, "comment": comment}); err != nil {
			return err
		}
		payload := payloads.ApprovalDecidedEvent{
			ApprovalID: approval.ID,
			ItemID:     item.ID,
			InquiryID:  item.InquiryID,
			Status:     string(decision),
			ApproverID: actor.UserID,
			Comment:    comment,
		}
		if err := e.emit(ctx, tx, actor, enums.EventApprovalDecided, enums.AggregateApproval, approval.ID, payload); err != nil {
			return err
		}

		recipients := []uuid.UUID{approval.RequestedBy}
		if item.AssigneeID != nil && *item.AssigneeID != approval.RequestedBy {
			recipients = append(recipients, *item.AssigneeID)
		}
		for _, userID := range recipients {
			if userID == uuid.Nil {
				continue
			}
			fx.notify(notifications.Message{
				UserID:  userID,
				Type:    enums.NotificationTypeApprovalDecided,
				Title:   "Cost approval " + string(decision),
				Message: fmt.Sprintf("The cost of item %q was %s", item.Name, decisionVerb(decision)),
				Payload: map[string]any{"approvalId": approval.ID, "itemId": item.ID, "status": decision},
			})
		}
		out = approval
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// openApproval reuses the calculation's pending approval or creates one. Only a
// newly created approval raises APPROVAL_REQUIRED.
func (e *Engine) openApproval(ctx context.Context, tx *gorm.DB, fx *effects, repo *Repository, calc *models.CostCalculation, item *models.InquiryItem, inquiry *models.Inquiry, actor permissions.Actor, reason string) (*models.Approval, error) {
	latest, err := repo.LatestApproval(ctx, calc.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, writeErr(err, "load approvals")
	}
	if latest != nil && latest.Status == enums.ApprovalStatusPending {
		if !latest.Amount.Equal(calc.Total) {
			if err := repo.UpdateApproval(ctx, latest.ID, map[string]any{"amount": calc.Total}); err != nil {
				return nil, writeErr(err, "refresh approval amount")
			}
			latest.Amount = calc.Total
		}
		return latest, nil
	}

	approval := &models.Approval{
		CostCalculationID: calc.ID,
		ItemID:            item.ID,
		RequestedBy:       actor.UserID,
		Status:            enums.ApprovalStatusPending,
		Threshold:         e.cfg.ApprovalThreshold,
		Amount:            calc.Total,
	}
	if reason != "" {
		approval.Reason = &reason
	}
	if err := repo.CreateApproval(ctx, approval); err != nil {
		return nil, writeErr(err, "create approval")
	}
	fx.moved(EntityApproval, string(enums.ApprovalStatusPending))

	if err := e.record(ctx, tx, actor, "approval.requested", EntityApproval, approval.ID, nil, map[string]any{
		"status": approval.Status,
		"amount": approval.Amount,
	}, map[string]any{"itemId": item.ID, "reason": reason}); err != nil {
		return nil, err
	}
	payload := payloads.ApprovalRequiredEvent{
		ApprovalID:        approval.ID,
		CostCalculationID: calc.ID,
		ItemID:            item.ID,
		InquiryID:         inquiry.ID,
		Amount:            approval.Amount,
		Threshold:         approval.Threshold,
		Reason:            reason,
		RequestedBy:       actor.UserID,
	}
	if err := e.emit(ctx, tx, actor, enums.EventApprovalRequired, enums.AggregateApproval, approval.ID, payload); err != nil {
		return nil, err
	}
	fx.event(Event{
		Trigger:    enums.TriggerApprovalRequired,
		EntityType: EntityItem,
		EntityID:   item.ID,
		Payload:    payload,
		Actor:      actor,
	})

	msgs, err := e.managerMessages(ctx, repo, notifications.Message{
		Type:    enums.NotificationTypeApprovalRequired,
		Title:   "Cost approval required",
		Message: fmt.Sprintf("Item %q of inquiry %q costs %s and needs approval", item.Name, inquiry.Title, approval.Amount.StringFixed(2)),
		Payload: map[string]any{"approvalId": approval.ID, "itemId": item.ID, "inquiryId": inquiry.ID},
	})
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		fx.notify(msg)
	}
	return approval, nil
}

// supersedeApproval rejects the calculation's pending approval once its total
// no longer needs one. The item keeps its COSTED status.
func (e *Engine) supersedeApproval(ctx context.Context, tx *gorm.DB, fx *effects, repo *Repository, calc *models.CostCalculation, actor permissions.Actor) error {
	latest, err := repo.LatestApproval(ctx, calc.ID)
	if db.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return writeErr(err, "load approvals")
	}
	if latest.Status != enums.ApprovalStatusPending {
		return nil
	}

	comment := "superseded by recalculation below the approval threshold"
	if err := repo.UpdateApproval(ctx, latest.ID, map[string]any{
		"status":     enums.ApprovalStatusRejected,
		"comment":    comment,
		"decided_at": e.now(),
	}); err != nil {
		return writeErr(err, "supersede approval")
	}
	fx.moved(EntityApproval, string(enums.ApprovalStatusRejected))

	old, updated := statusChange(string(latest.Status), string(enums.ApprovalStatusRejected))
	return e.record(ctx, tx, actor, "approval.superseded", EntityApproval, latest.ID, old, updated, map[string]any{
		"itemId": calc.ItemID,
		"total":  calc.Total,
	})
}

func costSnapshot(calc *models.CostCalculation) map[string]any {
	return map[string]any{
		"materialCost":     calc.MaterialCost,
		"laborCost":        calc.LaborCost,
		"overheadCost":     calc.OverheadCost,
		"otherCost":        calc.OtherCost,
		"marginPercent":    calc.MarginPercent,
		"total":            calc.Total,
		"requiresApproval": calc.RequiresApproval,
	}
}

func decisionVerb(decision enums.ApprovalStatus) string {
	if decision == enums.ApprovalStatusApproved {
		return "approved"
	}
	return "rejected"
}
