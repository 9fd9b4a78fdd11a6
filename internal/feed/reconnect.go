package feed

import (
	"context"
	"log/slog"
	"time"
)

// ReconnectPolicy is the bounded-exponential-backoff reconnection contract
// WebSocket-owning adapters follow: base delay 1s, doubling each attempt,
// capped at 30s, capped at 5 attempts. On each successful reconnect the
// caller is responsible for re-sending any subscriptions that were active
// before disconnect.
type ReconnectPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxAttempt int
}

// DefaultReconnectPolicy matches the Feed Manager's reconnection policy for
// adapters (§4.2): 1s base, doubling, 30s cap, 5 attempts.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempt: 5}
}

// Run repeatedly invokes connect until it succeeds, ctx is cancelled, or the
// attempt cap is reached. connect should block until the connection ends
// (e.g. running its own read loop) and return the reason it ended; a nil
// return is treated as a clean, non-retried shutdown.
func (p ReconnectPolicy) Run(ctx context.Context, log *slog.Logger, connect func(ctx context.Context) error) error {
	delay := p.BaseDelay
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		if attempt >= p.MaxAttempt {
			log.Error("feed: giving up after max reconnect attempts", slog.Int("attempts", attempt), slog.Any("error", err))
			return err
		}

		log.Warn("feed: connection lost, reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
