package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// History prints the persisted baseline for each monitored pair.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	baselines := a.openBaselines()

	entries, err := baselines.All(ctx)
	if err != nil {
		return err
	}

	filter := ""
	if opts.Pair != "" {
		pair, err := parsePair(opts.Pair)
		if err != nil {
			return err
		}
		filter = pair.Key()
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		if filter != "" && key != filter {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		fmt.Fprintln(os.Stdout, "no baseline history found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pair\tRate\tObserved (UTC)\tSource Update")

	for _, key := range keys {
		entry := entries[key]
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			key,
			entry.Rate.String(),
			entry.ObservedAt.UTC().Format(time.RFC3339),
			entry.UpdateTime,
		)
	}

	writer.Flush()
	return nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
