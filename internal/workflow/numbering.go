package workflow

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
)

const (
	quoteSequence           = "quote"
	productionOrderSequence = "production_order"
)

// formatNumber renders PREFIX-YYYY-NNNNNN.
func formatNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, seq)
}

func (e *Engine) nextNumber(ctx context.Context, prefix, sequence string, now time.Time) (string, error) {
	year := now.UTC().Year()
	seq, err := e.sequencer.NextSequence(ctx, sequence, year)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate "+sequence+" number")
	}
	return formatNumber(prefix, year, seq), nil
}
