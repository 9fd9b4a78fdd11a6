package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloddsbot/core/internal/domain"
)

// UserStore implements domain.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore backed by the given database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert inserts or updates a single user.
func (s *UserStore) Upsert(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (id, handle, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			handle = excluded.handle,
			updated_at = excluded.updated_at`

	_, err := s.db.conn.ExecContext(ctx, query, u.ID, u.Handle, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upsert user %s: %w", u.ID, err)
	}
	return nil
}

// GetByID retrieves a user by its primary key.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, handle, created_at, updated_at FROM users WHERE id = ?`

	var u domain.User
	err := s.db.conn.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Handle, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: get user %s: %w", id, err)
	}
	return u, nil
}
