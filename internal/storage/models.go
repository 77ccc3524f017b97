package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateEvent records a single classification outcome for auditing and export.
// Rates are nullable: a failed fetch carries no new rate, a first observation
// carries no previous one.
type RateEvent struct {
	ID           int64
	Pair         string
	Kind         string
	PrevRate     *decimal.Decimal
	NewRate      *decimal.Decimal
	ChangePct    *decimal.Decimal
	ThresholdPct decimal.Decimal
	Reason       *string
	ObservedAt   time.Time
	CreatedAt    time.Time
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID           int64
	Pair         string
	Kind         string
	ChangePct    *decimal.Decimal
	ThresholdPct decimal.Decimal
	Channels     []string
	CreatedAt    time.Time
}
