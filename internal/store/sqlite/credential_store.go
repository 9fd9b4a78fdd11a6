package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloddsbot/core/internal/domain"
)

// CredentialStore implements domain.CredentialStore using SQLite. Values
// arrive already encrypted by internal/crypto; this store never sees a
// plaintext key or secret.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a CredentialStore backed by the given database.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Upsert inserts or updates a user's encrypted credential for one venue.
func (s *CredentialStore) Upsert(ctx context.Context, c domain.TradingCredential) error {
	const query = `
		INSERT INTO trading_credentials (user_id, venue, ciphertext, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, venue) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			updated_at = excluded.updated_at`

	_, err := s.db.conn.ExecContext(ctx, query, c.UserID, c.Venue, c.Ciphertext, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upsert credential %s/%s: %w", c.UserID, c.Venue, err)
	}
	return nil
}

// Get retrieves a user's encrypted credential for one venue.
func (s *CredentialStore) Get(ctx context.Context, userID, venue string) (domain.TradingCredential, error) {
	const query = `SELECT user_id, venue, ciphertext, created_at, updated_at
		FROM trading_credentials WHERE user_id = ? AND venue = ?`

	var c domain.TradingCredential
	err := s.db.conn.QueryRowContext(ctx, query, userID, venue).Scan(
		&c.UserID, &c.Venue, &c.Ciphertext, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.TradingCredential{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TradingCredential{}, fmt.Errorf("sqlite: get credential %s/%s: %w", userID, venue, err)
	}
	return c, nil
}
