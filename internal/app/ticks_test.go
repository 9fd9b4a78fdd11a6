package app

import (
	"context"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/bus"
	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/hft"
)

func TestAssetFromMarketID(t *testing.T) {
	cases := map[string]string{
		"BTC-1700000000": "BTC",
		"ETH-USD-123":     "ETH-USD",
		"":                "",
		"no-dash-suffix-": "no-dash-suffix",
		"-leadingdash":    "",
	}
	for in, want := range cases {
		if got := assetFromMarketID(in); got != want {
			t.Errorf("assetFromMarketID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBusTickSourceDelegatesToBus(t *testing.T) {
	b := bus.New(discardLogger(), nil)
	src := busTickSource{bus: b}

	var got domain.PriceUpdate
	var calls int
	src.OnTick(func(p domain.PriceUpdate) {
		calls++
		got = p
	})

	want := domain.PriceUpdate{Venue: "kalshi", MarketID: "BTC-1", Price: 0.5}
	b.OnTick(func(p domain.PriceUpdate) {}) // second independent listener should not interfere
	b.EmitTick(context.Background(), want)

	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func newTestEngine() *hft.Engine {
	scanner := hft.NewScanner(nil, nil, hft.DefaultScannerConfig())
	positions := hft.NewPositionManager(hft.DefaultPositionManagerConfig(), nil, discardLogger())
	executor := hft.NewExecutor(nil, hft.DefaultExecutionConfig(), discardLogger())
	cfg := hft.EngineConfig{Venue: "kalshi"}
	return hft.NewEngine(cfg, scanner, positions, executor, nil, discardLogger())
}

func TestEngineTickBridgeIgnoresOtherVenues(t *testing.T) {
	engine := newTestEngine()
	bridge := engineTickBridge(engine, "kalshi")

	// A tick from a different venue must not be pushed into the engine's
	// buffers at all.
	bridge(domain.PriceUpdate{Venue: "polymarket", MarketID: "BTC-1700000000", Price: 1})
	if _, _, ok := engine.Buffers().Get("BTC").Latest(time.Now()); ok {
		t.Fatalf("expected no samples pushed for a tick from an unrelated venue")
	}
}

func TestEngineTickBridgeFeedsMatchingVenue(t *testing.T) {
	engine := newTestEngine()
	bridge := engineTickBridge(engine, "kalshi")

	bridge(domain.PriceUpdate{Venue: "kalshi", MarketID: "BTC-1700000000", Price: 42, TimestampMs: time.Now().UnixMilli()})
	price, _, ok := engine.Buffers().Get("BTC").Latest(time.Now())
	if !ok || price != 42 {
		t.Fatalf("expected a sample pushed for the matching venue, got ok=%v price=%v", ok, price)
	}
}
