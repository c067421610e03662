package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// ProductionWorkflow moves production orders along their linear sequence.
type ProductionWorkflow interface {
	AdvanceProductionOrder(ctx context.Context, orderID uuid.UUID, next enums.ProductionOrderStatus, actor permissions.Actor) (*models.ProductionOrder, error)
	GetProductionOrder(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.ProductionOrder, error)
}

type advanceOrderRequest struct {
	Status string `json:"status" validate:"omitempty,max=32"`
}

// AdvanceProductionOrder moves an order to the requested status. An empty
// status advances to the immediate successor.
func AdvanceProductionOrder(svc ProductionWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseIDParam(r, "orderId", "production order")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req advanceOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next := enums.ProductionOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if next == "" {
			current, err := svc.GetProductionOrder(r.Context(), orderID, actor)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			successor, ok := current.Status.Next()
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidTransition("production_order", orderID.String(), string(current.Status), "NEXT"))
				return
			}
			next = successor
		}

		order, err := svc.AdvanceProductionOrder(r.Context(), orderID, next, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.ProductionOrderFromModel(order))
	}
}

// GetProductionOrder returns one production order.
func GetProductionOrder(svc ProductionWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseIDParam(r, "orderId", "production order")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetProductionOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.ProductionOrderFromModel(order))
	}
}
