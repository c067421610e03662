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
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// ApprovalWorkflow decides pending cost approvals.
type ApprovalWorkflow interface {
	ApproveCost(ctx context.Context, approvalID uuid.UUID, decision enums.ApprovalStatus, comment string, actor permissions.Actor) (*models.Approval, error)
}

type approvalDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED approved rejected"`
	Comment  string `json:"comment" validate:"max=2000"`
}

// DecideApproval records a manager decision on a PENDING approval.
func DecideApproval(svc ApprovalWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approvalID, err := parseIDParam(r, "approvalId", "approval")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req approvalDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision := enums.ApprovalStatus(strings.ToUpper(req.Decision))
		approval, err := svc.ApproveCost(r.Context(), approvalID, decision, validators.SanitizeString(req.Comment, 2000), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.ApprovalFromModel(approval))
	}
}
