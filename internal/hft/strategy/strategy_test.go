package strategy

import (
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

func baseMarket() domain.CryptoMarket {
	return domain.CryptoMarket{
		Asset: "BTC", UpTokenID: "up", DownTokenID: "down",
		UpPrice: 0.50, DownPrice: 0.50, ConditionID: "cond-1",
	}
}

func TestMomentumRequiresMinimumMoveAndFreshness(t *testing.T) {
	ctx := EvalContext{
		Now:        time.Now(),
		Market:     baseMarket(),
		SpotMovePct: map[time.Duration]float64{30 * time.Second: 0.40},
		PolyAgeSec: 1,
		UpBook:     domain.OrderbookSnapshot{SpreadFrac: 0.01},
	}
	ctx.Market.UpPrice = 0.40

	sig, err := Momentum(ctx, Params{})
	if err != nil {
		t.Fatalf("Momentum: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a momentum signal")
	}
	if sig.Direction != domain.DirectionUp {
		t.Fatalf("expected up direction for positive spot move, got %v", sig.Direction)
	}
}

func TestMomentumRejectsStalePoly(t *testing.T) {
	ctx := EvalContext{
		Market:      baseMarket(),
		SpotMovePct: map[time.Duration]float64{30 * time.Second: 0.40},
		PolyAgeSec:  10,
	}
	sig, err := Momentum(ctx, Params{})
	if err != nil {
		t.Fatalf("Momentum: %v", err)
	}
	if sig != nil {
		t.Fatal("expected nil signal for stale poly price")
	}
}

func TestMeanReversionPicksCheapSide(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.20
	m.DownPrice = 0.80
	ctx := EvalContext{
		Market:      m,
		RoundAge:    200,
		SpotMovePct: map[time.Duration]float64{5 * time.Minute: 0.01},
		UpBook:      domain.OrderbookSnapshot{Imbalance: 0},
	}
	sig, err := MeanReversion(ctx, Params{})
	if err != nil {
		t.Fatalf("MeanReversion: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a mean reversion signal")
	}
	if sig.Direction != domain.DirectionUp {
		t.Fatalf("expected up (cheap side), got %v", sig.Direction)
	}
}

func TestMeanReversionRejectsEarlyRound(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.20
	ctx := EvalContext{Market: m, RoundAge: 5}
	sig, _ := MeanReversion(ctx, Params{})
	if sig != nil {
		t.Fatal("expected nil signal before minRoundAgeSec")
	}
}

func TestExpiryFadePicksCheaperSideNearExpiry(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.30
	m.DownPrice = 0.70
	ctx := EvalContext{
		Market:      m,
		TimeLeft:    90,
		SpotMovePct: map[time.Duration]float64{30 * time.Second: 0.01},
		UpBook:      domain.OrderbookSnapshot{SpreadFrac: 0.01},
	}
	sig, err := ExpiryFade(ctx, Params{})
	if err != nil {
		t.Fatalf("ExpiryFade: %v", err)
	}
	if sig == nil {
		t.Fatal("expected an expiry fade signal")
	}
	if sig.Direction != domain.DirectionUp {
		t.Fatalf("expected up (cheaper side), got %v", sig.Direction)
	}
}

func TestExpiryFadeRejectsOutsideWindow(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.30
	ctx := EvalContext{Market: m, TimeLeft: 500}
	sig, _ := ExpiryFade(ctx, Params{})
	if sig != nil {
		t.Fatal("expected nil signal outside the expiry window")
	}
}

func TestPennyClipperRequiresOscillationAndDiscount(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.20
	ctx := EvalContext{
		Market:              m,
		SpotRange30s:        0.05,
		PolyMean30s:         0.25,
		PolyReversals30s10c: 4,
		SpotMovePct:         map[time.Duration]float64{10 * time.Second: 0.05},
		UpBook:              domain.OrderbookSnapshot{Spread: 0.01},
	}
	sig, err := PennyClipper(ctx, Params{})
	if err != nil {
		t.Fatalf("PennyClipper: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a penny clipper signal")
	}
}

func TestPennyClipperRejectsWithoutOscillation(t *testing.T) {
	m := baseMarket()
	m.UpPrice = 0.20
	ctx := EvalContext{Market: m, SpotRange30s: 0.001, PolyReversals30s10c: 0}
	sig, _ := PennyClipper(ctx, Params{})
	if sig != nil {
		t.Fatal("expected nil signal without oscillation")
	}
}
