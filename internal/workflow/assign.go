package workflow

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignItems gives every listed item to one VP/VPP. Either all items are
// assigned or none are; a rejected request lists the offending item ids.
func (e *Engine) AssignItems(ctx context.Context, itemIDs []uuid.UUID, assigneeID uuid.UUID, actor permissions.Actor) (*AssignmentResult, error) {
	var result *AssignmentResult
	err := e.run(ctx, "assign_items", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceItem, permissions.ActionAssign); err != nil {
			return err
		}
		if len(itemIDs) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "at least one item id required")
		}
		if assigneeID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
		}

		repo := e.repo.WithTx(tx)
		assignee, err := repo.FindUser(ctx, assigneeID)
		if err != nil {
			return loadErr(err, EntityUser, assigneeID)
		}
		eligible := permissions.IsEligibleAssignee(assignee.Role) && e.policy.CanCalculateCosts(assignee.Role)
		if !assignee.IsActive || !eligible {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assignee must be an active VP or VPP").
				WithDetails(map[string]any{"assigneeId": assigneeID, "role": assignee.Role, "active": assignee.IsActive})
		}

		items, err := repo.LockItems(ctx, itemIDs)
		if err != nil {
			return writeErr(err, "load items")
		}
		inquiryIDs := distinctInquiries(itemIDs, items)
		inquiries, err := repo.LockInquiries(ctx, inquiryIDs)
		if err != nil {
			return writeErr(err, "load inquiries")
		}

		states := make([]assignment.ItemState, 0, len(items))
		for _, item := range items {
			states = append(states, assignment.ItemState{
				ItemID:        item.ID,
				InquiryID:     item.InquiryID,
				Status:        item.Status,
				InquiryStatus: inquiries[item.InquiryID].Status,
			})
		}
		if invalid := assignment.ValidateItems(itemIDs, states); len(invalid) > 0 {
			return invalidItemsError("some items cannot be assigned", invalid)
		}

		now := e.now()
		if err := repo.UpdateItems(ctx, itemIDs, map[string]any{
			"assignee_id": assigneeID,
			"assigned_at": now,
			"status":      enums.InquiryItemStatusAssigned,
		}); err != nil {
			return writeErr(err, "assign items")
		}

		byInquiry := make(map[uuid.UUID][]uuid.UUID, len(inquiryIDs))
		for _, id := range itemIDs {
			for _, item := range items {
				if item.ID == id {
					byInquiry[item.InquiryID] = append(byInquiry[item.InquiryID], id)
					break
				}
			}
		}

		for _, inquiryID := range inquiryIDs {
			inquiry := inquiries[inquiryID]
			if inquiry.Status == enums.InquiryStatusSubmitted {
				extra := map[string]any{}
				if inquiry.AssigneeID == nil {
					extra["assignee_id"] = assigneeID
				}
				if err := e.moveInquiry(ctx, tx, fx, repo, &inquiry, enums.InquiryStatusAssigned, actor, "", extra); err != nil {
					return err
				}
			}

			ids := byInquiry[inquiryID]
			meta := map[string]any{"itemIds": ids, "assigneeId": assigneeID}
			if err := e.record(ctx, tx, actor, "items.assigned", EntityInquiry, inquiryID, nil, nil, meta); err != nil {
				return err
			}
			payload := payloads.ItemsAssignedEvent{
				InquiryID:    inquiryID,
				AssigneeID:   assigneeID,
				AssigneeRole: string(assignee.Role),
				ItemIDs:      ids,
				ItemCount:    len(ids),
				Priority:     string(inquiry.Priority),
				AssignedBy:   actor.UserID,
			}
			if err := e.emit(ctx, tx, actor, enums.EventItemsAssigned, enums.AggregateInquiry, inquiryID, payload); err != nil {
				return err
			}
			fx.event(Event{
				Trigger:    enums.TriggerItemAssigned,
				EntityType: EntityInquiry,
				EntityID:   inquiryID,
				Payload:    payload,
				Actor:      actor,
			})
			fx.notify(notifications.Message{
				UserID:  assigneeID,
				Type:    enums.NotificationTypeItemAssigned,
				Title:   "New items assigned",
				Message: fmt.Sprintf("%d item(s) of inquiry %q were assigned to you", len(ids), inquiry.Title),
				Payload: map[string]any{
					"inquiryId": inquiryID,
					"itemIds":   ids,
					"itemCount": len(ids),
				},
			})
			for range ids {
				fx.moved(EntityItem, string(enums.InquiryItemStatusAssigned))
			}
		}

		result = &AssignmentResult{AssigneeID: assigneeID, ItemIDs: itemIDs, InquiryIDs: inquiryIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnassignItems returns items to PENDING and clears their assignee. Items whose
// cost calculation is locked by a sent quote cannot be unassigned.
func (e *Engine) UnassignItems(ctx context.Context, itemIDs []uuid.UUID, actor permissions.Actor) (*AssignmentResult, error) {
	var result *AssignmentResult
	err := e.run(ctx, "unassign_items", func(tx *gorm.DB, fx *effects) error {
		if err := e.authorize(actor, permissions.ResourceItem, permissions.ActionUnassign); err != nil {
			return err
		}
		if err := requireElevated(actor, "unassigning items"); err != nil {
			return err
		}
		if len(itemIDs) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "at least one item id required")
		}

		repo := e.repo.WithTx(tx)
		items, err := repo.LockItems(ctx, itemIDs)
		if err != nil {
			return writeErr(err, "load items")
		}
		inquiries, err := repo.LockInquiries(ctx, distinctInquiries(itemIDs, items))
		if err != nil {
			return writeErr(err, "load inquiries")
		}
		if invalid := validateUnassign(itemIDs, items, inquiries); len(invalid) > 0 {
			return invalidItemsError("some items cannot be unassigned", invalid)
		}

		if err := repo.UpdateItems(ctx, itemIDs, map[string]any{
			"assignee_id": nil,
			"assigned_at": nil,
			"status":      enums.InquiryItemStatusPending,
		}); err != nil {
			return writeErr(err, "unassign items")
		}

		inquiryIDs := distinctInquiries(itemIDs, items)
		for _, inquiryID := range inquiryIDs {
			var ids []uuid.UUID
			for _, item := range items {
				if item.InquiryID == inquiryID {
					ids = append(ids, item.ID)
				}
			}
			if err := e.record(ctx, tx, actor, "items.unassigned", EntityInquiry, inquiryID, nil, nil, map[string]any{"itemIds": ids}); err != nil {
				return err
			}
			payload := payloads.ItemsUnassignedEvent{InquiryID: inquiryID, ItemIDs: ids, UnassignedBy: actor.UserID}
			if err := e.emit(ctx, tx, actor, enums.EventItemsUnassigned, enums.AggregateInquiry, inquiryID, payload); err != nil {
				return err
			}
			for range ids {
				fx.moved(EntityItem, string(enums.InquiryItemStatusPending))
			}
		}

		result = &AssignmentResult{ItemIDs: itemIDs, InquiryIDs: inquiryIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateUnassign(requested []uuid.UUID, items []models.InquiryItem, inquiries map[uuid.UUID]models.Inquiry) []assignment.InvalidItem {
	byID := make(map[uuid.UUID]models.InquiryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	var invalid []assignment.InvalidItem
	seen := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			invalid = append(invalid, assignment.InvalidItem{ItemID: id, Reason: assignment.ReasonDuplicateRequest})
			continue
		}
		seen[id] = struct{}{}
		item, ok := byID[id]
		switch {
		case !ok:
			invalid = append(invalid, assignment.InvalidItem{ItemID: id, Reason: assignment.ReasonNotFound})
		case inquiries[item.InquiryID].Status.IsTerminal():
			invalid = append(invalid, assignment.InvalidItem{ItemID: id, Reason: fmt.Sprintf("%s (%s)", assignment.ReasonInquiryStatus, inquiries[item.InquiryID].Status)})
		case item.CostCalculation != nil && item.CostCalculation.Locked:
			invalid = append(invalid, assignment.InvalidItem{ItemID: id, Reason: assignment.ReasonCostLocked})
		case checkItem(id, item.Status, enums.InquiryItemStatusPending) != nil:
			invalid = append(invalid, assignment.InvalidItem{ItemID: id, Reason: fmt.Sprintf("%s (%s)", assignment.ReasonItemStatus, item.Status)})
		}
	}
	return invalid
}

// distinctInquiries returns the parent inquiries of the requested items in
// first-seen request order.
func distinctInquiries(requested []uuid.UUID, items []models.InquiryItem) []uuid.UUID {
	parent := make(map[uuid.UUID]uuid.UUID, len(items))
	for _, item := range items {
		parent[item.ID] = item.InquiryID
	}
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, id := range requested {
		inquiryID, ok := parent[id]
		if !ok {
			continue
		}
		if _, dup := seen[inquiryID]; dup {
			continue
		}
		seen[inquiryID] = struct{}{}
		out = append(out, inquiryID)
	}
	return out
}
