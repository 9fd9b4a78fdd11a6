package domain

import (
	"context"
	"time"
)

// RateLimiter enforces a sliding request budget per key. Allow returns
// whether the request at this instant is within limit requests per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
