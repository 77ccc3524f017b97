package monitor

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a single rate observation. Every upstream failure mode is a
// verdict kind, not an error.
type Kind string

const (
	KindNormal              Kind = "normal"
	KindFetchFailed         Kind = "fetch_failed"
	KindEmptyOrMissingData  Kind = "empty_or_missing_data"
	KindNonPositiveRate     Kind = "non_positive_rate"
	KindOutOfPlausibleRange Kind = "out_of_plausible_range"
	KindExcessiveMovement   Kind = "excessive_movement"
)

// Pair 表示一个有序货币对，如 CNY/PHP。
type Pair struct {
	Base  string
	Quote string
}

// Key returns the history-store key for the pair, e.g. "CNY_PHP".
func (p Pair) Key() string {
	return p.Base + "_" + p.Quote
}

// String renders the pair as "CNY/PHP".
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// FetchResult is the inbound contract from the rate fetch collaborator.
// OK=false means the fetch itself failed; OK=true with HasRate=false means
// the API answered but carried no usable numeric rate.
type FetchResult struct {
	Pair       Pair
	OK         bool
	Rate       decimal.Decimal
	HasRate    bool
	ObservedAt time.Time
	UpdateTime string
	Reason     string
}

// HistoryEntry holds the last accepted rate for a pair.
type HistoryEntry struct {
	Rate       decimal.Decimal `json:"rate"`
	ObservedAt time.Time       `json:"observed_at"`
	UpdateTime string          `json:"update_time,omitempty"`
}

// Config carries the evaluation parameters resolved for one pair.
type Config struct {
	ThresholdPct decimal.Decimal
	RateMin      decimal.Decimal
	RateMax      decimal.Decimal
}

// Verdict 描述一次汇率观测的分类结果及告警所需的全部细节。
type Verdict struct {
	Pair         Pair
	Kind         Kind
	PrevRate     *decimal.Decimal
	NewRate      *decimal.Decimal
	ChangePct    *decimal.Decimal
	ThresholdPct decimal.Decimal
	RateMin      decimal.Decimal
	RateMax      decimal.Decimal
	Reason       string
	ObservedAt   time.Time
}

// Alertable reports whether the verdict must be routed to delivery.
func (v Verdict) Alertable() bool {
	return v.Kind != KindNormal
}

// Summary renders a one-line human description of the verdict.
func (v Verdict) Summary() string {
	switch v.Kind {
	case KindNormal:
		return "正常"
	case KindFetchFailed:
		return fmt.Sprintf("汇率获取失败: %s", v.Reason)
	case KindEmptyOrMissingData:
		return "汇率数据为空"
	case KindNonPositiveRate:
		return fmt.Sprintf("汇率值异常: %s (应为正数)", v.NewRate)
	case KindOutOfPlausibleRange:
		return fmt.Sprintf("汇率值超出合理范围: %s (应在 %s ~ %s 之间)", v.NewRate, v.RateMin, v.RateMax)
	case KindExcessiveMovement:
		return fmt.Sprintf("汇率波动过大: %s%% (从 %s 到 %s, 阈值 %s%%)",
			formatSigned(v.ChangePct), v.PrevRate, v.NewRate, v.ThresholdPct)
	}
	return string(v.Kind)
}

func formatSigned(d *decimal.Decimal) string {
	if d == nil {
		return "n/a"
	}
	s := d.StringFixed(2)
	if d.Sign() >= 0 {
		return "+" + s
	}
	return s
}
