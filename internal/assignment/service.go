package assignment

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
)

type workloadSource interface {
	ListEligibleAssignees(ctx context.Context) ([]Assignee, error)
	CountWorkloads(ctx context.Context, assigneeIDs []uuid.UUID) (Workloads, error)
}

// Recommendation is the ranked workload view served to callers choosing an assignee.
type Recommendation struct {
	Assignees      []Ranked `json:"assignees"`
	AveragePending float64  `json:"averagePending"`
	Factor         float64  `json:"overloadFactor"`
	// CanAssign tells the caller whether they may act on the ranking.
	CanAssign bool `json:"canAssign"`
}

// Balancer builds recommendations from the live workload snapshot.
type Balancer struct {
	source workloadSource
	factor float64
}

// NewBalancer wires the balancer. A non-positive factor uses DefaultOverloadFactor.
func NewBalancer(source workloadSource, factor float64) (*Balancer, error) {
	if source == nil {
		return nil, fmt.Errorf("workload source required")
	}
	if factor <= 0 {
		factor = DefaultOverloadFactor
	}
	return &Balancer{source: source, factor: factor}, nil
}

// Factor returns the configured overload factor.
func (b *Balancer) Factor() float64 {
	return b.factor
}

// Recommend ranks every eligible assignee and flags the overloaded ones.
func (b *Balancer) Recommend(ctx context.Context) (*Recommendation, error) {
	assignees, err := b.source.ListEligibleAssignees(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible assignees")
	}
	ids := make([]uuid.UUID, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.ID)
	}
	workloads, err := b.source.CountWorkloads(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count workloads")
	}

	ranked := Rank(assignees, workloads)
	for i := range ranked {
		ranked[i].Overloaded = IsOverloaded(ranked[i].ID, workloads, b.factor)
	}
	return &Recommendation{
		Assignees:      ranked,
		AveragePending: AveragePending(workloads),
		Factor:         b.factor,
	}, nil
}
