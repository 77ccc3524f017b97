package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

// Alert 封装一次异常判定的告警载荷。
// Nil pointers render as "无" / "获取失败" / "n/a" so the delivery side never
// has to re-derive anything.
type Alert struct {
	Pair         string
	Kind         monitor.Kind
	PrevRate     *decimal.Decimal
	NewRate      *decimal.Decimal
	ChangePct    *decimal.Decimal
	ThresholdPct decimal.Decimal
	Reason       string
	ObservedAt   time.Time
}

// FromVerdict builds the delivery payload for an alertable verdict.
func FromVerdict(v monitor.Verdict) Alert {
	return Alert{
		Pair:         v.Pair.String(),
		Kind:         v.Kind,
		PrevRate:     v.PrevRate,
		NewRate:      v.NewRate,
		ChangePct:    v.ChangePct,
		ThresholdPct: v.ThresholdPct,
		Reason:       v.Summary(),
		ObservedAt:   v.ObservedAt,
	}
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Fanout delivers one alert to every configured channel. Channel failures are
// collected, not short-circuited: a broken webhook must not silence the rest.
type Fanout struct {
	notifiers map[string]Notifier
	order     []string
}

// NewFanout builds an empty fan-out dispatcher.
func NewFanout() *Fanout {
	return &Fanout{notifiers: map[string]Notifier{}}
}

// Register adds a named channel.
func (f *Fanout) Register(name string, n Notifier) {
	if _, ok := f.notifiers[name]; !ok {
		f.order = append(f.order, name)
	}
	f.notifiers[name] = n
}

// Channels lists registered channel names in registration order.
func (f *Fanout) Channels() []string {
	return append([]string(nil), f.order...)
}

// Len reports the number of registered channels.
func (f *Fanout) Len() int {
	return len(f.notifiers)
}

// Notify dispatches to all channels and joins any failures.
func (f *Fanout) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, name := range f.order {
		if err := f.notifiers[name].Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Title renders the short alert headline used as message title.
func (a Alert) Title() string {
	return "汇率异常告警 - " + a.Pair
}

// renderMarkdown builds the alert body shared by all channels.
func renderMarkdown(a Alert) string {
	builder := strings.Builder{}
	builder.WriteString("## 🚨 汇率异常告警\n\n")
	builder.WriteString(fmt.Sprintf("**货币对**: %s\n", a.Pair))
	builder.WriteString(fmt.Sprintf("**异常类型**: %s\n", a.Reason))
	builder.WriteString(fmt.Sprintf("**当前汇率**: %s\n", rateText(a.NewRate, "获取失败")))
	builder.WriteString(fmt.Sprintf("**上次汇率**: %s\n", rateText(a.PrevRate, "无")))
	builder.WriteString(fmt.Sprintf("**波动幅度**: %s\n", changeText(a.ChangePct)))
	builder.WriteString(fmt.Sprintf("**告警阈值**: %s%%\n", a.ThresholdPct))
	builder.WriteString(fmt.Sprintf("\n**时间**: %s\n", a.ObservedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString("\n请检查汇率API或联系管理员。\n")
	return builder.String()
}

func rateText(d *decimal.Decimal, absent string) string {
	if d == nil {
		return absent
	}
	return d.String()
}

func changeText(d *decimal.Decimal) string {
	if d == nil {
		return "n/a"
	}
	s := d.StringFixed(2) + "%"
	if d.Sign() >= 0 {
		return "+" + s
	}
	return s
}

var _ Notifier = (*Fanout)(nil)
