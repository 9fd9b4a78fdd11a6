package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/feed"
)

// feedRoundSource implements hft.RoundMarketSource over a feed.Manager,
// resolving one asset's current 15-minute binary-market round from the
// configured HFT venue. Matching a wall-clock slot to the venue's own
// round-market identifiers is venue-specific in the same way individual
// adapter wire protocols are; this keeps that mapping to a single
// predictable convention ("{asset}-{slotStart unix}") rather than teaching
// the Scanner about any one venue's naming scheme.
type feedRoundSource struct {
	feeds *feed.Manager
	venue string
}

func newFeedRoundSource(feeds *feed.Manager, venue string) *feedRoundSource {
	return &feedRoundSource{feeds: feeds, venue: venue}
}

// CurrentRoundMarket resolves asset's current-round UP/DOWN token pair by
// looking up a market whose id follows the "{asset}-{slotStart}" convention
// on the configured venue, then splitting its two outcomes into UP/DOWN.
func (s *feedRoundSource) CurrentRoundMarket(ctx context.Context, asset string, slotStart, slotEnd time.Time) (domain.CryptoMarket, error) {
	id := fmt.Sprintf("%s-%d", asset, slotStart.Unix())
	market, err := s.feeds.GetMarket(ctx, id, s.venue)
	if err != nil {
		return domain.CryptoMarket{}, fmt.Errorf("app: resolve round market %s: %w", id, err)
	}
	if len(market.Outcomes) < 2 {
		return domain.CryptoMarket{}, fmt.Errorf("app: round market %s has fewer than two outcomes", id)
	}

	return domain.CryptoMarket{
		Asset:       asset,
		UpTokenID:   market.Outcomes[0].ID,
		DownTokenID: market.Outcomes[1].ID,
		UpPrice:     market.Outcomes[0].Price,
		DownPrice:   market.Outcomes[1].Price,
		ConditionID: market.ID,
		ExpiresAt:   slotEnd,
	}, nil
}
