package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// AlertStore implements domain.AlertStore using SQLite.
type AlertStore struct {
	db *DB
}

// NewAlertStore creates an AlertStore backed by the given database.
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db}
}

const alertCols = `id, user_id, kind, name, market_id, venue, condition_kind, condition_threshold,
	enabled, triggered, created_at, last_triggered_at`

func scanAlert(row *sql.Row) (domain.Alert, error) {
	var a domain.Alert
	err := row.Scan(
		&a.ID, &a.UserID, &a.Kind, &a.Name, &a.MarketID, &a.Venue,
		&a.Condition.Kind, &a.Condition.Threshold,
		&a.Enabled, &a.Triggered, &a.CreatedAt, &a.LastTriggeredAt,
	)
	return a, err
}

// Create inserts a new alert.
func (s *AlertStore) Create(ctx context.Context, a domain.Alert) error {
	const query = `
		INSERT INTO alerts (` + alertCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.conn.ExecContext(ctx, query,
		a.ID, a.UserID, a.Kind, a.Name, a.MarketID, a.Venue,
		a.Condition.Kind, a.Condition.Threshold,
		a.Enabled, a.Triggered, a.CreatedAt, a.LastTriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create alert %s: %w", a.ID, err)
	}
	return nil
}

// GetByID retrieves an alert by its primary key.
func (s *AlertStore) GetByID(ctx context.Context, id string) (domain.Alert, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+alertCols+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return domain.Alert{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("sqlite: get alert %s: %w", id, err)
	}
	return a, nil
}

// ListEnabledUntriggered returns every alert that is enabled and has not yet
// triggered, the set the alert-scanning job evaluates each pass.
func (s *AlertStore) ListEnabledUntriggered(ctx context.Context) ([]domain.Alert, error) {
	const query = `SELECT ` + alertCols + ` FROM alerts WHERE enabled = 1 AND triggered = 0`

	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list enabled alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Kind, &a.Name, &a.MarketID, &a.Venue,
			&a.Condition.Kind, &a.Condition.Threshold,
			&a.Enabled, &a.Triggered, &a.CreatedAt, &a.LastTriggeredAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list enabled alerts rows: %w", err)
	}
	return alerts, nil
}

// MarkTriggered flips an alert to triggered and records when.
func (s *AlertStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE alerts SET triggered = 1, last_triggered_at = ? WHERE id = ?`

	_, err := s.db.conn.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: mark alert %s triggered: %w", id, err)
	}
	return nil
}

// Rearm clears an alert's triggered flag so it is evaluated again.
func (s *AlertStore) Rearm(ctx context.Context, id string) error {
	_, err := s.db.conn.ExecContext(ctx, `UPDATE alerts SET triggered = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: rearm alert %s: %w", id, err)
	}
	return nil
}

// Delete removes an alert by its primary key.
func (s *AlertStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete alert %s: %w", id, err)
	}
	return nil
}
