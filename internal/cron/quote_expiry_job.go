package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	quoteExpiryBatchSize  = 100
	quoteExpiryMaxBatches = 20
)

type quoteExpirer interface {
	QuotesDueForExpiry(ctx context.Context, limit int) ([]models.Quote, error)
	ExpireQuote(ctx context.Context, quoteID uuid.UUID) error
}

type QuoteExpiryJobParams struct {
	Logger    *logger.Logger
	Quotes    quoteExpirer
	BatchSize int
}

// NewQuoteExpiryJob moves SENT quotes past their validity to EXPIRED.
func NewQuoteExpiryJob(params QuoteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Quotes == nil {
		return nil, fmt.Errorf("quote workflow required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = quoteExpiryBatchSize
	}
	return &quoteExpiryJob{
		logg:      params.Logger,
		quotes:    params.Quotes,
		batchSize: batch,
	}, nil
}

type quoteExpiryJob struct {
	logg      *logger.Logger
	quotes    quoteExpirer
	batchSize int
}

func (j *quoteExpiryJob) Name() string { return "quote-expiry" }

// Run works through due quotes batch by batch. A failing quote stays SENT and
// is skipped for the rest of the run; a batch without progress ends the run.
func (j *quoteExpiryJob) Run(ctx context.Context) error {
	var (
		errs    error
		expired int
		skipped int
	)
	failed := map[uuid.UUID]struct{}{}
	for batch := 0; batch < quoteExpiryMaxBatches; batch++ {
		quotes, err := j.quotes.QuotesDueForExpiry(ctx, j.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list quotes due for expiry: %w", err))
			break
		}
		progressed := false
		for _, quote := range quotes {
			if _, seen := failed[quote.ID]; seen {
				continue
			}
			err := j.quotes.ExpireQuote(ctx, quote.ID)
			switch {
			case err == nil:
				expired++
				progressed = true
			case pkgerrors.Is(err, pkgerrors.CodeInvalidTransition):
				// decided between listing and locking
				skipped++
				progressed = true
			default:
				failed[quote.ID] = struct{}{}
				errs = multierr.Append(errs, fmt.Errorf("expire quote %s: %w", quote.QuoteNumber, err))
			}
		}
		if len(quotes) < j.batchSize || !progressed {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"expired": expired,
		"skipped": skipped,
		"failed":  len(failed),
	}), "quote expiry complete")
	return errs
}
