package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cloddsbot/core/internal/domain"
)

// MarketStore implements domain.MarketStore using SQLite, caching the
// metadata fetched from venue adapters. Outcomes and Tags are stored as
// JSON text since SQLite has no native array type.
type MarketStore struct {
	db *DB
}

// NewMarketStore creates a MarketStore backed by the given database.
func NewMarketStore(db *DB) *MarketStore {
	return &MarketStore{db: db}
}

const marketCols = `venue, id, slug, question, outcomes_json, volume_24h, liquidity, close_time,
	resolved, resolution, tags_json, url, created_at, updated_at`

// Upsert inserts or updates a single market.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	outcomesJSON, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("sqlite: marshal market %s outcomes: %w", m.ID, err)
	}
	tagsJSON, err := json.Marshal(m.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: marshal market %s tags: %w", m.ID, err)
	}

	const query = `
		INSERT INTO markets (` + marketCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue, id) DO UPDATE SET
			slug = excluded.slug,
			question = excluded.question,
			outcomes_json = excluded.outcomes_json,
			volume_24h = excluded.volume_24h,
			liquidity = excluded.liquidity,
			close_time = excluded.close_time,
			resolved = excluded.resolved,
			resolution = excluded.resolution,
			tags_json = excluded.tags_json,
			url = excluded.url,
			updated_at = excluded.updated_at`

	_, err = s.db.conn.ExecContext(ctx, query,
		m.Venue, m.ID, m.Slug, m.Question, string(outcomesJSON), m.Volume24h, m.Liquidity, m.CloseTime,
		m.Resolved, m.Resolution, string(tagsJSON), m.URL, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert market %s/%s: %w", m.Venue, m.ID, err)
	}
	return nil
}

// GetByID retrieves a market by its venue-scoped primary key.
func (s *MarketStore) GetByID(ctx context.Context, venue, id string) (domain.Market, error) {
	const query = `SELECT ` + marketCols + ` FROM markets WHERE venue = ? AND id = ?`

	var m domain.Market
	var outcomesJSON, tagsJSON string
	err := s.db.conn.QueryRowContext(ctx, query, venue, id).Scan(
		&m.Venue, &m.ID, &m.Slug, &m.Question, &outcomesJSON, &m.Volume24h, &m.Liquidity, &m.CloseTime,
		&m.Resolved, &m.Resolution, &tagsJSON, &m.URL, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Market{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("sqlite: get market %s/%s: %w", venue, id, err)
	}
	if err := json.Unmarshal([]byte(outcomesJSON), &m.Outcomes); err != nil {
		return domain.Market{}, fmt.Errorf("sqlite: unmarshal market %s/%s outcomes: %w", venue, id, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
		return domain.Market{}, fmt.Errorf("sqlite: unmarshal market %s/%s tags: %w", venue, id, err)
	}
	return m, nil
}
