package hft

import (
	"context"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

type fakeRoundSource struct{}

func (fakeRoundSource) CurrentRoundMarket(ctx context.Context, asset string, slotStart, slotEnd time.Time) (domain.CryptoMarket, error) {
	return domain.CryptoMarket{
		Asset: asset, UpTokenID: asset + "-up", DownTokenID: asset + "-down",
		UpPrice: 0.5, DownPrice: 0.5, ExpiresAt: slotEnd,
	}, nil
}

func TestScannerRefreshComputesSlotAndAge(t *testing.T) {
	s := NewScanner([]string{"BTC", "ETH"}, fakeRoundSource{}, DefaultScannerConfig())
	now := time.Date(2026, 7, 31, 12, 7, 0, 0, time.UTC)

	round := s.Refresh(context.Background(), now)
	if round.AgeSec < 0 || round.AgeSec >= 900 {
		t.Fatalf("unexpected round age: %v", round.AgeSec)
	}
	if round.TimeLeft <= 0 || round.TimeLeft > 900 {
		t.Fatalf("unexpected round time left: %v", round.TimeLeft)
	}
	if len(round.Markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(round.Markets))
	}
}

func TestCanTradeRequiresMinimumAgeAndTimeLeft(t *testing.T) {
	s := NewScanner([]string{"BTC"}, fakeRoundSource{}, ScannerConfig{MinRoundAgeSec: 5, MinTimeLeftSec: 10})

	ok := s.CanTrade(domain.Round{AgeSec: 1, TimeLeft: 800})
	if ok {
		t.Fatal("expected CanTrade false when round is too fresh")
	}

	ok = s.CanTrade(domain.Round{AgeSec: 100, TimeLeft: 5})
	if ok {
		t.Fatal("expected CanTrade false when too little time left")
	}

	ok = s.CanTrade(domain.Round{AgeSec: 100, TimeLeft: 500})
	if !ok {
		t.Fatal("expected CanTrade true when within bounds")
	}
}

func TestSlotBoundsAlignsToFifteenMinutes(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 7, 0, 0, time.UTC)
	start, end, _ := slotBounds(now)
	if start.Minute() != 0 || end.Minute() != 15 {
		t.Fatalf("expected slot [12:00,12:15), got [%v,%v)", start, end)
	}
}
