package hft

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

func testLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func openPos(id, asset string, entry float64, expiresIn time.Duration, now time.Time) domain.OpenPosition {
	return domain.OpenPosition{
		ID: id, Asset: asset, Direction: domain.DirectionUp, TokenID: "tok-" + asset,
		EntryPrice: entry, Shares: 100, CurrentPrice: entry,
		ExpiresAt: now.Add(expiresIn), OpenedAt: now, UpdatedAt: now,
	}
}

func TestForceExitTakesPriorityNearExpiry(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	p := openPos("p1", "BTC", 0.50, 10*time.Second, now)
	_ = m.Open(p)

	book := domain.OrderbookSnapshot{BestBid: 0.90, MidPrice: 0.90, BidDepth: 100}
	d, ok := m.evaluateExit(p, book, now)
	if !ok || d.Reason != domain.ExitReasonForceExit {
		t.Fatalf("expected force_exit close to expiry even with large profit, got %+v ok=%v", d, ok)
	}
}

func TestStopLossFiresOnLargeLoss(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	p := openPos("p1", "BTC", 0.50, 5*time.Minute, now)
	_ = m.Open(p)

	book := domain.OrderbookSnapshot{BestBid: 0.40, MidPrice: 0.40, BidDepth: 100} // -20% move
	d, ok := m.evaluateExit(p, book, now)
	if !ok || d.Reason != domain.ExitReasonStopLoss {
		t.Fatalf("expected stop_loss, got %+v ok=%v", d, ok)
	}
}

func TestTakeProfitFiresAboveThreshold(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	p := openPos("p1", "BTC", 0.50, 5*time.Minute, now)
	_ = m.Open(p)

	book := domain.OrderbookSnapshot{BestBid: 0.60, MidPrice: 0.60, BidDepth: 100} // +20% move
	d, ok := m.evaluateExit(p, book, now)
	if !ok || d.Reason != domain.ExitReasonTakeProfit {
		t.Fatalf("expected take_profit, got %+v ok=%v", d, ok)
	}
	if !d.UseMaker {
		t.Fatal("expected take-profit to use maker exit by default config")
	}
}

func TestDepthCollapseFiresWhenBidDepthDropsBelowPeak(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	p := openPos("p1", "BTC", 0.50, 5*time.Minute, now)
	_ = m.Open(p)

	// Tick once with strong depth to establish a peak.
	if err := m.Tick("p1", 0.50, domain.OrderbookSnapshot{BestBid: 0.50, BidDepth: 1000}, now); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p = *m.open["p1"]

	book := domain.OrderbookSnapshot{BestBid: 0.50, MidPrice: 0.50, BidDepth: 300} // 30% of peak
	d, ok := m.evaluateExit(p, book, now)
	if !ok || d.Reason != domain.ExitReasonDepthCollapse {
		t.Fatalf("expected depth_collapse, got %+v ok=%v", d, ok)
	}
}

func TestNoExitWhenNothingTriggers(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	p := openPos("p1", "BTC", 0.50, 5*time.Minute, now)
	_ = m.Open(p)

	book := domain.OrderbookSnapshot{BestBid: 0.505, MidPrice: 0.505, BidDepth: 100}
	_, ok := m.evaluateExit(p, book, now)
	if ok {
		t.Fatal("expected no exit for a small, stable move")
	}
}

func TestCanOpenEnforcesPerAssetUniquenessAndCap(t *testing.T) {
	cfg := DefaultPositionManagerConfig()
	cfg.MaxOpenPositions = 1
	m := NewPositionManager(cfg, nil, testLog())
	now := time.Now()
	_ = m.Open(openPos("p1", "BTC", 0.5, time.Minute, now))

	if m.CanOpen("BTC", domain.DirectionUp) {
		t.Fatal("expected CanOpen false for an asset with an existing position")
	}
	if m.CanOpen("ETH", domain.DirectionUp) {
		t.Fatal("expected CanOpen false once max open positions reached")
	}
}

func TestCloseRemovesFromOpenAndStartsCooldown(t *testing.T) {
	m := NewPositionManager(DefaultPositionManagerConfig(), nil, testLog())
	now := time.Now()
	_ = m.Open(openPos("p1", "BTC", 0.5, time.Minute, now))

	closed, err := m.Close(context.Background(), "p1", 0.55, domain.ExitReasonTakeProfit, true, now)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.RealizedPnLPct <= 0 {
		t.Fatalf("expected positive realized PnL, got %v", closed.RealizedPnLPct)
	}
	if len(m.GetOpen()) != 0 {
		t.Fatal("expected no open positions after close")
	}
	if !m.InCooldown("BTC", now) {
		t.Fatal("expected asset to be in cooldown immediately after close")
	}
}
