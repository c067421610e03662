package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/idempotency"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	defaultDeadlineWindowDays = 3
	deadlineSignalScope       = "deadline-approaching"
)

type deadlineSource interface {
	QuotesExpiringWithin(ctx context.Context, window time.Duration) ([]models.Quote, error)
	RaiseDeadlineApproaching(ctx context.Context, quote models.Quote) error
}

// signalGuard remembers which signals already went out.
type signalGuard interface {
	Once(ctx context.Context, scope string, id uuid.UUID, fn func(context.Context) error) (bool, error)
}

type DeadlineJobParams struct {
	Logger     *logger.Logger
	Quotes     deadlineSource
	Guard      signalGuard
	WindowDays int
}

// NewDeadlineJob raises DEADLINE_APPROACHING once a day for every SENT quote
// expiring within the window.
func NewDeadlineJob(params DeadlineJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Quotes == nil {
		return nil, fmt.Errorf("quote workflow required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("signal guard required")
	}
	days := params.WindowDays
	if days <= 0 {
		days = defaultDeadlineWindowDays
	}
	return &deadlineJob{
		logg:   params.Logger,
		quotes: params.Quotes,
		guard:  params.Guard,
		window: time.Duration(days) * 24 * time.Hour,
		now:    time.Now,
	}, nil
}

type deadlineJob struct {
	logg   *logger.Logger
	quotes deadlineSource
	guard  signalGuard
	window time.Duration
	now    func() time.Time
}

func (j *deadlineJob) Name() string { return "deadline-approaching" }

func (j *deadlineJob) Run(ctx context.Context) error {
	quotes, err := j.quotes.QuotesExpiringWithin(ctx, j.window)
	if err != nil {
		return fmt.Errorf("list expiring quotes: %w", err)
	}
	scope := idempotency.DailyScope(deadlineSignalScope, j.now())

	var (
		errs   error
		raised int
	)
	for _, quote := range quotes {
		ran, err := j.guard.Once(ctx, scope, quote.ID, func(ctx context.Context) error {
			return j.quotes.RaiseDeadlineApproaching(ctx, quote)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("raise deadline for quote %s: %w", quote.QuoteNumber, err))
			continue
		}
		if !ran {
			continue
		}
		raised++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"window_hours": j.window.Hours(),
		"candidates":   len(quotes),
		"raised":       raised,
	}), "deadline scan complete")
	return errs
}
