package automation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
)

// Workflow is the slice of the workflow engine rule actions call. Every call
// is authorized as the rule's creator.
type Workflow interface {
	SubmitInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	CancelInquiry(ctx context.Context, inquiryID uuid.UUID, reason string, actor permissions.Actor) (*models.Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	PendingItemIDs(ctx context.Context, inquiryID uuid.UUID) ([]uuid.UUID, error)
	AssignItems(ctx context.Context, itemIDs []uuid.UUID, assigneeID uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error)
	RequestCostApproval(ctx context.Context, costCalculationID uuid.UUID, reason string, actor permissions.Actor) (*models.Approval, error)
	SendQuote(ctx context.Context, quoteID uuid.UUID, actor permissions.Actor) (*models.Quote, error)
	RecordQuoteOutcome(ctx context.Context, quoteID uuid.UUID, outcome enums.QuoteStatus, actor permissions.Actor) (*workflow.QuoteOutcomeResult, error)
	AdvanceProductionOrder(ctx context.Context, orderID uuid.UUID, next enums.ProductionOrderStatus, actor permissions.Actor) (*models.ProductionOrder, error)
}

// Notifier delivers send_notification actions.
type Notifier interface {
	Notify(ctx context.Context, msgs ...notifications.Message) error
}

// Users resolves rule creators and the managers recipient.
type Users interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveByRoles(ctx context.Context, roles ...enums.UserRole) ([]models.User, error)
}

const automationCancelReason = "cancelled by automation rule"

func (e *Engine) execute(ctx context.Context, rule Rule, index int, action Action, doc Document, actor permissions.Actor) error {
	params, err := action.Decode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("action %d", index))
	}
	switch p := params.(type) {
	case *ChangeStatusParams:
		return e.changeStatus(ctx, p, doc, actor)
	case *AssignUserParams:
		return e.assignUser(ctx, p, doc, actor)
	case *SendNotificationParams:
		return e.sendNotification(ctx, rule, p, doc, actor)
	case *CreateApprovalParams:
		id, ok := doc.UUID("costCalculationId")
		if !ok {
			return missingField("costCalculationId")
		}
		_, err := e.workflow.RequestCostApproval(ctx, id, p.Reason, actor)
		return err
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported action %s", action.Type)
}

func (e *Engine) changeStatus(ctx context.Context, p *ChangeStatusParams, doc Document, actor permissions.Actor) error {
	target, ok := changeStatusTargets[p.Target]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown change_status target "+p.Target)
	}
	id, ok := doc.UUID(target.field)
	if !ok {
		return missingField(target.field)
	}

	var err error
	switch p.Target {
	case TargetInquiry:
		switch enums.InquiryStatus(p.Status) {
		case enums.InquiryStatusSubmitted:
			_, err = e.workflow.SubmitInquiry(ctx, id, actor)
		case enums.InquiryStatusCancelled:
			_, err = e.workflow.CancelInquiry(ctx, id, automationCancelReason, actor)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "inquiry cannot be moved to "+p.Status+" by a rule")
		}
	case TargetQuote:
		status := enums.QuoteStatus(p.Status)
		if status == enums.QuoteStatusSent {
			_, err = e.workflow.SendQuote(ctx, id, actor)
		} else {
			_, err = e.workflow.RecordQuoteOutcome(ctx, id, status, actor)
		}
	case TargetProductionOrder:
		_, err = e.workflow.AdvanceProductionOrder(ctx, id, enums.ProductionOrderStatus(p.Status), actor)
	}
	return err
}

// assignUser assigns the event's items when the payload lists them, otherwise
// every pending item of the event's inquiry.
func (e *Engine) assignUser(ctx context.Context, p *AssignUserParams, doc Document, actor permissions.Actor) error {
	itemIDs := doc.UUIDs("itemIds")
	if len(itemIDs) == 0 {
		inquiryID, ok := doc.UUID("inquiryId")
		if !ok {
			return missingField("inquiryId")
		}
		pending, err := e.workflow.PendingItemIDs(ctx, inquiryID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "inquiry has no pending items").
				WithDetails(map[string]any{"inquiryId": inquiryID})
		}
		itemIDs = pending
	}
	_, err := e.workflow.AssignItems(ctx, itemIDs, p.UserID, actor)
	return err
}

func (e *Engine) sendNotification(ctx context.Context, rule Rule, p *SendNotificationParams, doc Document, actor permissions.Actor) error {
	var recipients []uuid.UUID
	switch p.Recipient {
	case enums.RecipientUser:
		if p.UserID == nil {
			return missingField("userId")
		}
		recipients = []uuid.UUID{*p.UserID}
	case enums.RecipientAssignee:
		id, ok := doc.UUID("assigneeId")
		if !ok {
			return missingField("assigneeId")
		}
		recipients = []uuid.UUID{id}
	case enums.RecipientCreator:
		inquiryID, ok := doc.UUID("inquiryId")
		if !ok {
			return missingField("inquiryId")
		}
		inquiry, err := e.workflow.GetInquiry(ctx, inquiryID, actor)
		if err != nil {
			return err
		}
		recipients = []uuid.UUID{inquiry.CreatedBy}
	case enums.RecipientManagers:
		managers, err := e.users.ListActiveByRoles(ctx, enums.UserRoleManager)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load managers")
		}
		for _, m := range managers {
			recipients = append(recipients, m.ID)
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown recipient "+string(p.Recipient))
	}
	if len(recipients) == 0 {
		return nil
	}

	title := doc.Render(p.Title)
	body := doc.Render(p.Message)
	entity, _ := doc.Lookup("entity")
	msgs := make([]notifications.Message, 0, len(recipients))
	for _, id := range recipients {
		msgs = append(msgs, notifications.Message{
			UserID:  id,
			Type:    enums.NotificationTypeAutomation,
			Title:   title,
			Message: body,
			Payload: map[string]any{"ruleId": rule.ID, "ruleName": rule.Name, "entity": entity},
		})
	}
	if err := e.notifier.Notify(ctx, msgs...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification")
	}
	return nil
}

func missingField(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "event payload has no "+field)
}
