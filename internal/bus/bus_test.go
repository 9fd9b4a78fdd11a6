package bus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitTickIsolatesPanickingListener(t *testing.T) {
	b := New(discardLogger(), nil)

	var calledA, calledC bool
	b.OnTick(func(domain.PriceUpdate) { calledA = true })
	b.OnTick(func(domain.PriceUpdate) { panic("boom") })
	b.OnTick(func(domain.PriceUpdate) { calledC = true })

	delivered := b.EmitTick(context.Background(), domain.PriceUpdate{Venue: "polymarket", MarketID: "m1"})

	if !delivered {
		t.Fatal("expected EmitTick to report delivery when listeners are attached")
	}
	if !calledA || !calledC {
		t.Fatal("expected listeners before and after the panicking one to still run")
	}
}

func TestEmitReturnsFalseWithNoListeners(t *testing.T) {
	b := New(discardLogger(), nil)
	if b.EmitTick(context.Background(), domain.PriceUpdate{}) {
		t.Fatal("expected EmitTick to return false with no listeners attached")
	}
}

type stubFeedSource struct {
	tickFn func(domain.PriceUpdate)
	obFn   func(domain.OrderbookSnapshot)
	unsubs int
}

func (s *stubFeedSource) OnTick(fn func(domain.PriceUpdate)) func() {
	s.tickFn = fn
	return func() { s.unsubs++ }
}

func (s *stubFeedSource) OnOrderbook(fn func(domain.OrderbookSnapshot)) func() {
	s.obFn = fn
	return func() { s.unsubs++ }
}

func TestConnectFeedsForwardsTicksAndDisconnectUnsubscribes(t *testing.T) {
	b := New(discardLogger(), nil)
	src := &stubFeedSource{}

	b.ConnectFeeds(context.Background(), src)

	var got domain.PriceUpdate
	b.OnTick(func(p domain.PriceUpdate) { got = p })

	src.tickFn(domain.PriceUpdate{Venue: "kalshi", MarketID: "abc", TimestampMs: time.Now().UnixMilli()})

	if got.Venue != "kalshi" || got.MarketID != "abc" {
		t.Fatalf("tick not forwarded through bus, got %+v", got)
	}

	b.DisconnectFeeds()
	if src.unsubs != 2 {
		t.Fatalf("expected 2 unsubscribes (tick+orderbook), got %d", src.unsubs)
	}
}
