package monitor

import (
	"github.com/shopspring/decimal"
)

var dec100 = decimal.NewFromInt(100)

// Classify evaluates a fresh fetch result against the prior baseline for the
// same pair and decides both the verdict and the entry to persist next.
//
// 分类按固定优先级进行，首个命中即返回:
// FetchFailed → EmptyOrMissingData → NonPositiveRate → OutOfPlausibleRange →
// ExcessiveMovement → Normal.
//
// A nil returned entry means the baseline stays frozen: a bad reading must
// never become the comparison point for the next run. ExcessiveMovement is the
// one alertable kind that still updates the baseline, so a real large move
// settles after a single alert instead of re-firing every run.
func Classify(res FetchResult, prior *HistoryEntry, cfg Config) (Verdict, *HistoryEntry) {
	verdict := Verdict{
		Pair:         res.Pair,
		ThresholdPct: cfg.ThresholdPct,
		RateMin:      cfg.RateMin,
		RateMax:      cfg.RateMax,
		Reason:       res.Reason,
		ObservedAt:   res.ObservedAt,
	}
	if prior != nil {
		prev := prior.Rate
		verdict.PrevRate = &prev
	}

	if !res.OK {
		verdict.Kind = KindFetchFailed
		return verdict, nil
	}

	if !res.HasRate {
		verdict.Kind = KindEmptyOrMissingData
		return verdict, nil
	}

	rate := res.Rate
	verdict.NewRate = &rate

	if rate.Sign() <= 0 {
		verdict.Kind = KindNonPositiveRate
		return verdict, nil
	}

	if rate.LessThan(cfg.RateMin) || rate.GreaterThan(cfg.RateMax) {
		verdict.Kind = KindOutOfPlausibleRange
		return verdict, nil
	}

	entry := &HistoryEntry{
		Rate:       rate,
		ObservedAt: res.ObservedAt,
		UpdateTime: res.UpdateTime,
	}

	// 首次观测仅建立基线，永不告警。
	if prior == nil || prior.Rate.Sign() <= 0 {
		verdict.Kind = KindNormal
		return verdict, entry
	}

	change := rate.Sub(prior.Rate).Div(prior.Rate).Mul(dec100)
	verdict.ChangePct = &change

	if change.Abs().GreaterThanOrEqual(cfg.ThresholdPct) && cfg.ThresholdPct.Sign() > 0 {
		verdict.Kind = KindExcessiveMovement
		return verdict, entry
	}

	verdict.Kind = KindNormal
	return verdict, entry
}
