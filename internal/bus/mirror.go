package bus

import (
	"context"
	"log/slog"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Channel names the mirror publishes onto.
const (
	ChannelTicks      = "clodds:bus:ticks"
	ChannelOrderbooks = "clodds:bus:orderbooks"
	ChannelSignals    = "clodds:bus:signals"
)

// RedisMirror republishes bus events onto Redis pub/sub channels,
// msgpack-encoded, so a second process can observe the same stream without
// being a direct in-process listener. It is a best-effort side channel:
// publish failures are logged, never returned to the emitting caller.
type RedisMirror struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedisMirror constructs a RedisMirror over an already-connected client.
func NewRedisMirror(rdb *redis.Client, log *slog.Logger) *RedisMirror {
	return &RedisMirror{rdb: rdb, log: log}
}

func (m *RedisMirror) PublishTick(ctx context.Context, p domain.PriceUpdate) {
	m.publish(ctx, ChannelTicks, p)
}

func (m *RedisMirror) PublishOrderbook(ctx context.Context, ob domain.OrderbookSnapshot) {
	m.publish(ctx, ChannelOrderbooks, ob)
}

func (m *RedisMirror) PublishSignal(ctx context.Context, s domain.TradeSignal) {
	m.publish(ctx, ChannelSignals, s)
}

func (m *RedisMirror) publish(ctx context.Context, channel string, v any) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		m.log.Warn("bus: mirror encode failed", slog.String("channel", channel), slog.Any("error", err))
		return
	}
	if err := m.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		m.log.Warn("bus: mirror publish failed", slog.String("channel", channel), slog.Any("error", err))
	}
}

var _ Mirror = (*RedisMirror)(nil)
