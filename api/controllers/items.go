package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// ItemWorkflow is the slice of the workflow engine the item and cost routes use.
type ItemWorkflow interface {
	AssignItems(ctx context.Context, itemIDs []uuid.UUID, assigneeID uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error)
	UnassignItems(ctx context.Context, itemIDs []uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error)
	RecordCostCalculation(ctx context.Context, itemID uuid.UUID, input workflow.CostInput, actor permissions.Actor) (*models.CostCalculation, error)
	RequestCostApproval(ctx context.Context, costCalculationID uuid.UUID, reason string, actor permissions.Actor) (*models.Approval, error)
}

type assignItemsRequest struct {
	ItemIDs    []string `json:"itemIds" validate:"required,min=1,max=500"`
	AssigneeID string   `json:"assigneeId" validate:"required,uuid"`
}

type unassignItemsRequest struct {
	ItemIDs []string `json:"itemIds" validate:"required,min=1,max=500"`
}

type recordCostRequest struct {
	MaterialCost  decimal.Decimal `json:"materialCost" validate:"gte=0"`
	LaborCost     decimal.Decimal `json:"laborCost" validate:"gte=0"`
	OverheadCost  decimal.Decimal `json:"overheadCost" validate:"gte=0"`
	OtherCost     decimal.Decimal `json:"otherCost" validate:"gte=0"`
	MarginPercent decimal.Decimal `json:"marginPercent" validate:"gte=0"`
	Notes         *string         `json:"notes" validate:"omitempty,max=4000"`
}

type requestApprovalRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// AssignItems assigns a batch of items to one VP/VPP, all or nothing.
func AssignItems(svc ItemWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemIDs, err := parseIDs(req.ItemIDs, "itemIds")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignItems(r.Context(), itemIDs, uuid.MustParse(req.AssigneeID), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UnassignItems returns a batch of items to PENDING.
func UnassignItems(svc ItemWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req unassignItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemIDs, err := parseIDs(req.ItemIDs, "itemIds")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UnassignItems(r.Context(), itemIDs, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RecordCost creates or replaces the cost calculation of an item.
func RecordCost(svc ItemWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseIDParam(r, "itemId", "item")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordCostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cost, err := svc.RecordCostCalculation(r.Context(), itemID, workflow.CostInput{
			MaterialCost:  req.MaterialCost,
			LaborCost:     req.LaborCost,
			OverheadCost:  req.OverheadCost,
			OtherCost:     req.OtherCost,
			MarginPercent: req.MarginPercent,
			Notes:         req.Notes,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.CostFromModel(cost))
	}
}

// RequestCostApproval opens a PENDING approval for a cost calculation.
func RequestCostApproval(svc ItemWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		costID, err := parseIDParam(r, "costId", "cost calculation")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req requestApprovalRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.RequestCostApproval(r.Context(), costID, validators.SanitizeString(req.Reason, 2000), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workflow.ApprovalFromModel(approval))
	}
}
