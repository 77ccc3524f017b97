package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/Lfy181/sea-daily-briefing/internal/storage"
)

// Export renders one pair's audit trail as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Pair == "" {
		return errors.New("--pair is required")
	}

	pair, err := parsePair(opts.Pair)
	if err != nil {
		return err
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openAudit(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	// 监控按日运行，窗口按天折算。
	from := to.AddDate(0, 0, -opts.MaxPoints)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	events, err := store.ListEventsBetween(ctx, pair.String(), from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.Logger.Info().Str("pair", pair.String()).Msg("no events found for export window")
		return nil
	}

	downsampled := downsampleEvents(events, opts.MaxPoints)
	a.Logger.Info().Int("total", len(events)).Int("exported", len(downsampled)).Msg("exporting events")

	if opts.CSVPath != "" {
		if err := writeEventsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeEventsPNG(opts.PNGPath, pair.String(), downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleEvents(events []storage.RateEvent, max int) []storage.RateEvent {
	if max <= 0 || len(events) <= max {
		return events
	}

	result := make([]storage.RateEvent, 0, max)
	step := float64(len(events)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(events) {
			idx = len(events) - 1
		}
		result = append(result, events[idx])
	}
	return result
}

func writeEventsCSV(path string, events []storage.RateEvent) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "pair", "kind", "prev_rate", "new_rate", "change_pct", "threshold_pct", "reason"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, event := range events {
		reason := ""
		if event.Reason != nil {
			reason = *event.Reason
		}
		record := []string{
			event.ObservedAt.UTC().Format(time.RFC3339),
			event.Pair,
			event.Kind,
			optionalDecimal(event.PrevRate),
			optionalDecimal(event.NewRate),
			optionalDecimal(event.ChangePct),
			event.ThresholdPct.String(),
			reason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeEventsPNG(path, pair string, events []storage.RateEvent) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	// Failed fetches carry no numeric rate; chart only what is plottable.
	var (
		rateX   []time.Time
		rateY   []float64
		changeX []time.Time
		changeY []float64
	)
	for _, event := range events {
		if event.NewRate != nil {
			rateX = append(rateX, event.ObservedAt)
			rateY = append(rateY, event.NewRate.InexactFloat64())
		}
		if event.ChangePct != nil {
			changeX = append(changeX, event.ObservedAt)
			changeY = append(changeY, event.ChangePct.InexactFloat64())
		}
	}
	if len(rateX) < 2 {
		return errors.New("not enough numeric observations to render a chart")
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rate (" + pair + ")",
			ValueFormatter: rateFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Change (%)",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Rate",
				XValues: rateX,
				YValues: rateY,
			},
		},
	}
	if len(changeX) >= 2 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Change %",
			XValues: changeX,
			YValues: changeY,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func optionalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
