package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lfy181/sea-daily-briefing/internal/alerting"
	"github.com/Lfy181/sea-daily-briefing/internal/config"
	"github.com/Lfy181/sea-daily-briefing/internal/fetcher"
	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
	"github.com/Lfy181/sea-daily-briefing/internal/storage"
)

// Service orchestrates fetching, classification, persistence, and alerting
// for one scheduled invocation. 每个货币对按 fetch → get → classify → put →
// notify 的顺序独立处理。
type Service struct {
	cfg        *config.Config
	fetcher    fetcher.RateFetcher
	baselines  storage.BaselineStore
	events     storage.EventStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	channels   []string
	logger     zerolog.Logger
	alertsOn   bool
}

// New constructs the monitoring service. The event and alert stores may be
// nil (auditing disabled); the baseline store must not be.
func New(cfg *config.Config, f fetcher.RateFetcher, baselines storage.BaselineStore, events storage.EventStore, alertStore storage.AlertStore, notifier alerting.Notifier, channels []string, logger zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		fetcher:    f,
		baselines:  baselines,
		events:     events,
		alertStore: alertStore,
		notifier:   notifier,
		channels:   channels,
		logger:     logger.With().Str("component", "service").Logger(),
		alertsOn:   cfg.Alerting.Enabled,
	}
}

// RunOnce evaluates every configured pair once, sequentially. A baseline
// store failure aborts the run immediately: classifying against missing or
// stale history would corrupt the comparison point for every later run.
func (s *Service) RunOnce(ctx context.Context) error {
	if s.baselines == nil {
		return fmt.Errorf("baseline store not configured")
	}

	for _, pairCfg := range s.cfg.Pairs {
		if err := s.ProcessPair(ctx, pairCfg); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPair 处理单个货币对的一次观测。
func (s *Service) ProcessPair(ctx context.Context, pairCfg config.PairConfig) error {
	pair := pairCfg.Pair()

	res := s.fetcher.FetchRate(ctx, pair)

	prior, ok, err := s.baselines.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("load baseline %s: %w", pair, err)
	}
	var priorEntry *monitor.HistoryEntry
	if ok {
		priorEntry = &prior
	}

	verdict, entry := monitor.Classify(res, priorEntry, s.cfg.EvaluatorConfig(pairCfg))

	if entry != nil {
		if err := s.baselines.Put(ctx, pair, *entry); err != nil {
			return fmt.Errorf("persist baseline %s: %w", pair, err)
		}
	}

	s.recordEvent(ctx, verdict)

	event := s.logger.Info()
	if verdict.Alertable() {
		event = s.logger.Warn()
	}
	event.
		Str("pair", pair.String()).
		Str("kind", string(verdict.Kind)).
		Bool("baseline_updated", entry != nil).
		Msg(verdict.Summary())

	if verdict.Alertable() {
		s.dispatchAlert(ctx, verdict)
	}
	return nil
}

// recordEvent writes the classification to the audit trail; auditing is best
// effort and never blocks the run.
func (s *Service) recordEvent(ctx context.Context, verdict monitor.Verdict) {
	if s.events == nil {
		return
	}

	reason := verdict.Summary()
	event := storage.RateEvent{
		Pair:         verdict.Pair.String(),
		Kind:         string(verdict.Kind),
		PrevRate:     verdict.PrevRate,
		NewRate:      verdict.NewRate,
		ChangePct:    verdict.ChangePct,
		ThresholdPct: verdict.ThresholdPct,
		Reason:       &reason,
		ObservedAt:   verdict.ObservedAt,
	}
	if err := s.events.InsertEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("pair", verdict.Pair.String()).Msg("failed to record rate event")
	}
}

// dispatchAlert routes an alertable verdict to every configured channel.
// Delivery failures are logged, never fatal: the baseline has already been
// handled and the remaining pairs must still run.
func (s *Service) dispatchAlert(ctx context.Context, verdict monitor.Verdict) {
	if !s.alertsOn || s.notifier == nil {
		s.logger.Warn().
			Str("pair", verdict.Pair.String()).
			Str("kind", string(verdict.Kind)).
			Msg("告警未启用，跳过发送")
		return
	}

	alert := alerting.FromVerdict(verdict)

	if s.alertStore != nil {
		record := storage.AlertRecord{
			Pair:         alert.Pair,
			Kind:         string(alert.Kind),
			ChangePct:    alert.ChangePct,
			ThresholdPct: alert.ThresholdPct,
			Channels:     s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("pair", alert.Pair).Msg("failed to persist alert record")
		}
	}

	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Error().Err(err).Str("pair", alert.Pair).Msg("failed to dispatch alert")
		return
	}
	s.logger.Info().Str("pair", alert.Pair).Str("kind", string(alert.Kind)).Msg("alert dispatched")
}
