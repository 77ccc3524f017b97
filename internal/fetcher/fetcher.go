package fetcher

import (
	"context"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

// RateFetcher retrieves the quote-per-base exchange rate for one pair.
// Implementations normalise every failure mode into the FetchResult itself;
// the evaluator turns those into verdicts, so no Go error crosses this
// boundary.
type RateFetcher interface {
	FetchRate(ctx context.Context, pair monitor.Pair) monitor.FetchResult
}
