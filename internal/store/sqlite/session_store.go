package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// SessionStore implements domain.SessionStore using SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore backed by the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, sess domain.Session) error {
	const query = `INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

	_, err := s.db.conn.ExecContext(ctx, query, sess.ID, sess.UserID, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: create session %s: %w", sess.ID, err)
	}
	return nil
}

// GetByID retrieves a session by its primary key.
func (s *SessionStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`

	var sess domain.Session
	err := s.db.conn.QueryRowContext(ctx, query, id).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("sqlite: get session %s: %w", id, err)
	}
	return sess, nil
}

// Delete removes a session by its primary key.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now and
// reports how many rows were removed.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete expired sessions rows affected: %w", err)
	}
	return n, nil
}
