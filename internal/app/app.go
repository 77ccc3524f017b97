package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lfy181/sea-daily-briefing/internal/alerting"
	"github.com/Lfy181/sea-daily-briefing/internal/config"
	"github.com/Lfy181/sea-daily-briefing/internal/fetcher"
	"github.com/Lfy181/sea-daily-briefing/internal/service"
	"github.com/Lfy181/sea-daily-briefing/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.RateFetcher {
	return fetcher.NewJuhe(fetcher.JuheOptions{
		BaseURL:         a.Config.Juhe.BaseURL,
		APIKey:          a.Config.Juhe.APIKey,
		Timeout:         a.Config.Juhe.Timeout,
		RequestsPerSec:  a.Config.Juhe.RequestsPerSec,
		MaxRetryElapsed: a.Config.Juhe.MaxRetryElapsed,
	}, a.Logger)
}

// newNotifier builds the alert fan-out from the configured channels. Returns
// nil when no channel is usable.
func (a *App) newNotifier() (alerting.Notifier, []string) {
	fanout := alerting.NewFanout()

	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "dingtalk":
			cfg := a.Config.Alerting.DingTalk
			if cfg.Enabled {
				fanout.Register("dingtalk", alerting.NewDingTalkNotifier(cfg.Webhook, cfg.Timeout, a.Logger))
			}
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			if cfg.Enabled {
				fanout.Register("telegram", alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			}
		default:
			a.Logger.Warn().Str("channel", channel).Msg("未知的告警通道，忽略")
		}
	}

	if fanout.Len() == 0 {
		return nil, nil
	}
	return fanout, fanout.Channels()
}

func (a *App) openBaselines() storage.BaselineStore {
	return storage.NewFileStore(a.Config.History.Path)
}

// openAudit opens the optional Postgres audit store. A missing DSN disables
// auditing without touching the core.
func (a *App) openAudit(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes one monitoring pass over all configured pairs.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	audit, closeAudit, err := a.openAudit(ctx)
	if err != nil {
		return err
	}
	if audit == nil {
		a.Logger.Debug().Msg("database.dsn not configured; audit trail disabled")
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	notifier, channels := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}

	var events storage.EventStore
	var alertStore storage.AlertStore
	if audit != nil {
		events = audit
		alertStore = audit
	}

	svc := service.New(a.Config, a.newFetcher(), a.openBaselines(), events, alertStore, notifier, channels, a.Logger)

	a.Logger.Info().Int("pairs", len(a.Config.Pairs)).Msg("starting monitoring run")
	err = svc.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitoring run failed")
		return err
	}

	a.Logger.Info().Msg("monitoring run finished")
	return nil
}

// ExportOptions hold parameters for exporting the audit trail.
type ExportOptions struct {
	Pair      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Pair string
}

// AlertsOptions configure the alerts command.
type AlertsOptions struct {
	Limit int
}

// SimulateOptions configure a simulated observation.
type SimulateOptions struct {
	Pair  string
	Rate  float64
	Prior float64
}
