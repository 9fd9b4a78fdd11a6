package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// User is a persisted account row.
type User struct {
	ID        string
	Handle    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is a persisted login/session row.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TradingCredential is a persisted, encrypted-at-rest credential set for one
// user/venue pair. Ciphertext is produced by internal/crypto.
type TradingCredential struct {
	UserID     string
	Venue      string
	Ciphertext string // "iv:hex || ciphertext:hex"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	Upsert(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	GetByID(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AlertStore persists alerts.
type AlertStore interface {
	Create(ctx context.Context, a Alert) error
	GetByID(ctx context.Context, id string) (Alert, error)
	ListEnabledUntriggered(ctx context.Context) ([]Alert, error)
	MarkTriggered(ctx context.Context, id string, at time.Time) error
	Rearm(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PositionStore persists closed positions (open positions are in-memory
// only, owned by hft.PositionManager).
type PositionStore interface {
	Insert(ctx context.Context, p ClosedPosition) error
	ListHistory(ctx context.Context, opts ListOpts) ([]ClosedPosition, error)
}

// MarketStore persists a read-through cache of fetched market metadata.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	GetByID(ctx context.Context, venue, id string) (Market, error)
}

// CredentialStore persists encrypted trading credentials.
type CredentialStore interface {
	Upsert(ctx context.Context, c TradingCredential) error
	Get(ctx context.Context, userID, venue string) (TradingCredential, error)
}

// CronJobStore persists cron jobs.
type CronJobStore interface {
	Create(ctx context.Context, j CronJob) error
	Update(ctx context.Context, j CronJob) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (CronJob, error)
	ListEnabled(ctx context.Context) ([]CronJob, error)
	ListDuePast(ctx context.Context, now time.Time) ([]CronJob, error)
}
