package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloddsbot/core/internal/domain"
)

// PositionStore implements domain.PositionStore using SQLite.
type PositionStore struct {
	db *DB
}

// NewPositionStore creates a PositionStore backed by the given database.
func NewPositionStore(db *DB) *PositionStore {
	return &PositionStore{db: db}
}

const positionCols = `id, strategy, asset, direction, token_id, condition_id, entry_price, shares,
	exit_price, realized_pnl, realized_pnl_pct, exit_reason, was_maker_exit, opened_at, closed_at`

// Insert records a closed position.
func (s *PositionStore) Insert(ctx context.Context, p domain.ClosedPosition) error {
	const query = `
		INSERT INTO positions (` + positionCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.conn.ExecContext(ctx, query,
		p.ID, p.Strategy, p.Asset, p.Direction, p.TokenID, p.ConditionID, p.EntryPrice, p.Shares,
		p.ExitPrice, p.RealizedPnL, p.RealizedPnLPct, p.ExitReason, p.WasMakerExit, p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert position %s: %w", p.ID, err)
	}
	return nil
}

// ListHistory returns closed positions, most recent first, filtered and
// paginated per opts.
func (s *PositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.ClosedPosition, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + positionCols + ` FROM positions WHERE 1 = 1`)
	var args []any

	if opts.Since != nil {
		sb.WriteString(` AND closed_at >= ?`)
		args = append(args, *opts.Since)
	}
	if opts.Until != nil {
		sb.WriteString(` AND closed_at <= ?`)
		args = append(args, *opts.Until)
	}
	sb.WriteString(` ORDER BY closed_at DESC`)
	if opts.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		sb.WriteString(` LIMIT -1`)
	}
	if opts.Offset > 0 {
		sb.WriteString(` OFFSET ?`)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list position history: %w", err)
	}
	defer rows.Close()

	var positions []domain.ClosedPosition
	for rows.Next() {
		var p domain.ClosedPosition
		if err := rows.Scan(
			&p.ID, &p.Strategy, &p.Asset, &p.Direction, &p.TokenID, &p.ConditionID, &p.EntryPrice, &p.Shares,
			&p.ExitPrice, &p.RealizedPnL, &p.RealizedPnLPct, &p.ExitReason, &p.WasMakerExit, &p.OpenedAt, &p.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan closed position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list position history rows: %w", err)
	}
	return positions, nil
}
