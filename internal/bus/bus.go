// Package bus implements the in-process signal bus: a strongly-typed,
// multi-consumer event hub for price ticks, orderbook snapshots, and trading
// signals. Delivery is synchronous and listener errors are isolated — one
// failing listener never blocks or aborts delivery to the rest.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cloddsbot/core/internal/domain"
)

// TickListener receives a price update.
type TickListener func(domain.PriceUpdate)

// OrderbookListener receives an orderbook snapshot.
type OrderbookListener func(domain.OrderbookSnapshot)

// SignalListener receives a generated trade signal.
type SignalListener func(domain.TradeSignal)

// Mirror is the optional distributed side channel the bus republishes onto.
// Its failures never block or delay in-process delivery.
type Mirror interface {
	PublishTick(ctx context.Context, p domain.PriceUpdate)
	PublishOrderbook(ctx context.Context, ob domain.OrderbookSnapshot)
	PublishSignal(ctx context.Context, s domain.TradeSignal)
}

// FeedSource is the subset of feed.Manager the bus binds to via
// connectFeeds. Kept minimal and local to avoid a dependency cycle between
// bus and feed.
type FeedSource interface {
	OnTick(fn func(domain.PriceUpdate)) (unsubscribe func())
	OnOrderbook(fn func(domain.OrderbookSnapshot)) (unsubscribe func())
}

// Bus is the in-process signal bus. Zero value is not usable; construct with
// New.
type Bus struct {
	log    *slog.Logger
	mirror Mirror

	mu         sync.Mutex
	ticks      []TickListener
	orderbooks []OrderbookListener
	signals    []SignalListener

	feedUnsub []func()
}

// New constructs a Bus. mirror may be nil, in which case no distributed
// mirroring occurs.
func New(log *slog.Logger, mirror Mirror) *Bus {
	return &Bus{log: log, mirror: mirror}
}

// OnTick attaches a tick consumer.
func (b *Bus) OnTick(fn TickListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks = append(b.ticks, fn)
}

// OnOrderbook attaches an orderbook consumer.
func (b *Bus) OnOrderbook(fn OrderbookListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderbooks = append(b.orderbooks, fn)
}

// OnSignal attaches a signal consumer.
func (b *Bus) OnSignal(fn SignalListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, fn)
}

// EmitTick delivers a price update to every attached tick listener,
// isolating panics/errors per-listener, and mirrors it if a Mirror is
// configured. Returns true iff at least one listener was attached.
func (b *Bus) EmitTick(ctx context.Context, p domain.PriceUpdate) bool {
	b.mu.Lock()
	listeners := append([]TickListener(nil), b.ticks...)
	b.mu.Unlock()

	for _, fn := range listeners {
		b.safeCall(func() { fn(p) })
	}
	if b.mirror != nil {
		b.mirror.PublishTick(ctx, p)
	}
	return len(listeners) > 0
}

// EmitOrderbook delivers an orderbook snapshot to every attached listener.
func (b *Bus) EmitOrderbook(ctx context.Context, ob domain.OrderbookSnapshot) bool {
	b.mu.Lock()
	listeners := append([]OrderbookListener(nil), b.orderbooks...)
	b.mu.Unlock()

	for _, fn := range listeners {
		b.safeCall(func() { fn(ob) })
	}
	if b.mirror != nil {
		b.mirror.PublishOrderbook(ctx, ob)
	}
	return len(listeners) > 0
}

// EmitSignal delivers a trade signal to every attached listener.
func (b *Bus) EmitSignal(ctx context.Context, s domain.TradeSignal) bool {
	b.mu.Lock()
	listeners := append([]SignalListener(nil), b.signals...)
	b.mu.Unlock()

	for _, fn := range listeners {
		b.safeCall(func() { fn(s) })
	}
	if b.mirror != nil {
		b.mirror.PublishSignal(ctx, s)
	}
	return len(listeners) > 0
}

// ConnectFeeds subscribes the bus to a feed source's tick/orderbook streams
// and republishes them as bus events. Calling ConnectFeeds again first
// disconnects any prior binding.
func (b *Bus) ConnectFeeds(ctx context.Context, src FeedSource) {
	b.DisconnectFeeds()

	unsubTick := src.OnTick(func(p domain.PriceUpdate) {
		b.EmitTick(ctx, p)
	})
	unsubOB := src.OnOrderbook(func(ob domain.OrderbookSnapshot) {
		b.EmitOrderbook(ctx, ob)
	})

	b.mu.Lock()
	b.feedUnsub = []func(){unsubTick, unsubOB}
	b.mu.Unlock()
}

// DisconnectFeeds drops all producer listeners registered by ConnectFeeds.
// The bus continues to accept direct Emit* calls from in-process strategies.
func (b *Bus) DisconnectFeeds() {
	b.mu.Lock()
	unsubs := b.feedUnsub
	b.feedUnsub = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

// safeCall invokes fn, recovering a panic and logging it rather than letting
// it propagate to the caller or abort delivery to remaining listeners.
func (b *Bus) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus: listener panicked", slog.Any("recover", r))
		}
	}()
	fn()
}
