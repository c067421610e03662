package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/idempotency"
	"go.uber.org/multierr"
)

const workloadSignalScope = "workload-threshold"

type workloadRecommender interface {
	Recommend(ctx context.Context) (*assignment.Recommendation, error)
}

type workloadSignaler interface {
	RaiseWorkloadThreshold(ctx context.Context, ranked assignment.Ranked, average, factor float64) error
}

type WorkloadJobParams struct {
	Logger   *logger.Logger
	Balancer workloadRecommender
	Signals  workloadSignaler
	Guard    signalGuard
}

// NewWorkloadJob raises WORKLOAD_THRESHOLD at most once a day per overloaded
// assignee.
func NewWorkloadJob(params WorkloadJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Balancer == nil {
		return nil, fmt.Errorf("assignment balancer required")
	}
	if params.Signals == nil {
		return nil, fmt.Errorf("workflow signaler required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("signal guard required")
	}
	return &workloadJob{
		logg:     params.Logger,
		balancer: params.Balancer,
		signals:  params.Signals,
		guard:    params.Guard,
		now:      time.Now,
	}, nil
}

type workloadJob struct {
	logg     *logger.Logger
	balancer workloadRecommender
	signals  workloadSignaler
	guard    signalGuard
	now      func() time.Time
}

func (j *workloadJob) Name() string { return "workload-threshold" }

func (j *workloadJob) Run(ctx context.Context) error {
	rec, err := j.balancer.Recommend(ctx)
	if err != nil {
		return fmt.Errorf("recommend assignees: %w", err)
	}
	scope := idempotency.DailyScope(workloadSignalScope, j.now())

	var (
		errs       error
		overloaded int
		raised     int
	)
	for _, ranked := range rec.Assignees {
		if !ranked.Overloaded {
			continue
		}
		overloaded++
		ran, err := j.guard.Once(ctx, scope, ranked.ID, func(ctx context.Context) error {
			return j.signals.RaiseWorkloadThreshold(ctx, ranked, rec.AveragePending, rec.Factor)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("raise workload threshold for %s: %w", ranked.ID, err))
			continue
		}
		if !ran {
			continue
		}
		raised++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"assignees":       len(rec.Assignees),
		"overloaded":      overloaded,
		"raised":          raised,
		"average_pending": rec.AveragePending,
	}), "workload scan complete")
	return errs
}
