package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/config"
	"github.com/Lfy181/sea-daily-briefing/internal/fetcher"
	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
	"github.com/Lfy181/sea-daily-briefing/internal/service"
	"github.com/Lfy181/sea-daily-briefing/internal/storage"
)

// SimulateAlert 用给定汇率走一遍完整的判定与告警链路，便于验证
// webhook 配置。基线放在内存里，不会触碰真实历史文件。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier, channels := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	pair, err := parsePair(opts.Pair)
	if err != nil {
		return err
	}

	baselines := storage.NewMemoryStore()
	if opts.Prior > 0 {
		entry := monitor.HistoryEntry{
			Rate:       decimal.NewFromFloat(opts.Prior),
			ObservedAt: time.Now().UTC().Add(-24 * time.Hour),
		}
		if err := baselines.Put(ctx, pair, entry); err != nil {
			return err
		}
	}

	f := &staticRateFetcher{rate: decimal.NewFromFloat(opts.Rate)}
	svc := service.New(a.Config, f, baselines, nil, nil, notifier, channels, a.Logger)

	return svc.ProcessPair(ctx, config.PairConfig{Base: pair.Base, Quote: pair.Quote})
}

// parsePair accepts "CNY/PHP" or "CNY_PHP".
func parsePair(s string) (monitor.Pair, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), "_", "/")
	parts := strings.Split(normalized, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return monitor.Pair{}, fmt.Errorf("无效的货币对 %q, 期望格式 CNY/PHP", s)
	}
	return monitor.Pair{
		Base:  strings.ToUpper(parts[0]),
		Quote: strings.ToUpper(parts[1]),
	}, nil
}

type staticRateFetcher struct {
	rate decimal.Decimal
}

func (s *staticRateFetcher) FetchRate(ctx context.Context, pair monitor.Pair) monitor.FetchResult {
	return monitor.FetchResult{
		Pair:       pair,
		OK:         true,
		Rate:       s.rate,
		HasRate:    true,
		ObservedAt: time.Now().UTC(),
	}
}

var _ fetcher.RateFetcher = (*staticRateFetcher)(nil)
