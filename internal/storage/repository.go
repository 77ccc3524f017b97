package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	insertEventSQL = `INSERT INTO rate_events (
        pair,
        kind,
        prev_rate,
        new_rate,
        change_pct,
        threshold_pct,
        reason,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listEventsBetweenSQL = `SELECT
        id,
        pair,
        kind,
        prev_rate,
        new_rate,
        change_pct,
        threshold_pct,
        reason,
        observed_at,
        created_at
    FROM rate_events
    WHERE pair = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY observed_at;`

	listRecentEventsSQL = `SELECT
        id,
        pair,
        kind,
        prev_rate,
        new_rate,
        change_pct,
        threshold_pct,
        reason,
        observed_at,
        created_at
    FROM rate_events
    WHERE pair = $1
    ORDER BY observed_at DESC
    LIMIT $2;`

	countEventsSQL = `SELECT COUNT(*) FROM rate_events;`

	insertAlertSQL = `INSERT INTO alerts (
        pair,
        kind,
        change_pct,
        threshold_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, pair, kind, change_pct, threshold_pct, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        pair,
        kind,
        change_pct,
        threshold_pct,
        channels,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`
)

// EventStore defines operations for the classification audit trail.
type EventStore interface {
	InsertEvent(ctx context.Context, event RateEvent) error
	ListEventsBetween(ctx context.Context, pair string, from, to time.Time) ([]RateEvent, error)
	ListRecentEvents(ctx context.Context, pair string, limit int) ([]RateEvent, error)
	CountEvents(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to the rate event trail and alert audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertEvent persists one classification outcome.
func (s *Store) InsertEvent(ctx context.Context, event RateEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertEventSQL,
		event.Pair,
		event.Kind,
		decimalString(event.PrevRate),
		decimalString(event.NewRate),
		decimalString(event.ChangePct),
		event.ThresholdPct.String(),
		event.Reason,
		event.ObservedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert rate event: %w", execErr)
	}
	return nil
}

// ListEventsBetween lists one pair's events within a time window.
func (s *Store) ListEventsBetween(ctx context.Context, pair string, from, to time.Time) ([]RateEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listEventsBetweenSQL, pair, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list events between: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, 0)
}

// ListRecentEvents lists one pair's most recent events, newest first.
func (s *Store) ListRecentEvents(ctx context.Context, pair string, limit int) ([]RateEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, pair, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, limit)
}

// CountEvents counts stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Pair,
		alert.Kind,
		decimalString(alert.ChangePct),
		alert.ThresholdPct.String(),
		alert.Channels,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectEvents(rows pgx.Rows, hint int) ([]RateEvent, error) {
	events := make([]RateEvent, 0, hint)
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func scanEvent(rows pgx.Rows) (RateEvent, error) {
	var (
		event        RateEvent
		prevStr      sql.NullString
		newStr       sql.NullString
		changeStr    sql.NullString
		thresholdStr string
		reason       sql.NullString
	)

	if err := rows.Scan(
		&event.ID,
		&event.Pair,
		&event.Kind,
		&prevStr,
		&newStr,
		&changeStr,
		&thresholdStr,
		&reason,
		&event.ObservedAt,
		&event.CreatedAt,
	); err != nil {
		return RateEvent{}, err
	}

	var convErr error
	if event.PrevRate, convErr = nullDecimal(prevStr); convErr != nil {
		return RateEvent{}, fmt.Errorf("parse prev rate: %w", convErr)
	}
	if event.NewRate, convErr = nullDecimal(newStr); convErr != nil {
		return RateEvent{}, fmt.Errorf("parse new rate: %w", convErr)
	}
	if event.ChangePct, convErr = nullDecimal(changeStr); convErr != nil {
		return RateEvent{}, fmt.Errorf("parse change pct: %w", convErr)
	}
	if event.ThresholdPct, convErr = decimal.NewFromString(thresholdStr); convErr != nil {
		return RateEvent{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}
	if reason.Valid {
		msg := reason.String
		event.Reason = &msg
	}

	return event, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec          AlertRecord
		changeStr    sql.NullString
		thresholdStr string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.Pair,
		&rec.Kind,
		&changeStr,
		&thresholdStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	if rec.ChangePct, convErr = nullDecimal(changeStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse change pct: %w", convErr)
	}
	if rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}

	return rec, nil
}

func decimalString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
