package app

import (
	"context"
	"fmt"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/feed"
)

// feedOrderbookCache adapts feed.Manager.GetOrderbook (venue+market id,
// pointer result) to hft.OrderbookCache (token id only, value result), the
// shape the HFT engine and Position Manager share for reading depth.
type feedOrderbookCache struct {
	feeds *feed.Manager
	venue string
}

func newFeedOrderbookCache(feeds *feed.Manager, venue string) *feedOrderbookCache {
	return &feedOrderbookCache{feeds: feeds, venue: venue}
}

func (c *feedOrderbookCache) GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	book, err := c.feeds.GetOrderbook(ctx, c.venue, tokenID)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("app: orderbook cache: %w", err)
	}
	return *book, nil
}
