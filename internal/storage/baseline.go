package storage

import (
	"context"
	"errors"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// BaselineStore persists the last accepted rate per currency pair. It is the
// single source of truth for the "previous rate" used by movement detection.
//
// Get never fails for a missing pair; absence is reported through the bool.
// Any error returned here is an I/O failure that must abort the run rather
// than let classification proceed against stale or missing history.
type BaselineStore interface {
	Get(ctx context.Context, pair monitor.Pair) (monitor.HistoryEntry, bool, error)
	Put(ctx context.Context, pair monitor.Pair, entry monitor.HistoryEntry) error
	All(ctx context.Context) (map[string]monitor.HistoryEntry, error)
}
