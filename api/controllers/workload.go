package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// WorkloadRecommender ranks eligible assignees by pending work.
type WorkloadRecommender interface {
	Recommend(ctx context.Context) (*assignment.Recommendation, error)
}

// Workload returns the advisory assignee ranking.
func Workload(svc WorkloadRecommender, policy *permissions.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := policy.Authorize(actor.Role, permissions.ResourceWorkload, permissions.ActionRead); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recommendation, err := svc.Recommend(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recommendation.CanAssign = policy.CanAssignItems(actor.Role)
		responses.WriteSuccess(w, recommendation)
	}
}
