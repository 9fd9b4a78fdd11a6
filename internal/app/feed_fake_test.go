package app

import (
	"context"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// fakeAdapter is a minimal feed.Adapter (and feed.OrderbookAdapter) backed by
// in-memory maps, used to exercise the app package's feed.Manager adapters
// without a real venue integration.
type fakeAdapter struct {
	markets    map[string]*domain.Market
	orderbooks map[string]*domain.OrderbookSnapshot
	obErr      error
}

func (f *fakeAdapter) Start(ctx context.Context) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error   { return nil }

func (f *fakeAdapter) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeAdapter) SearchMarkets(ctx context.Context, query string) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeAdapter) OnTick(fn func(domain.PriceUpdate)) func() {
	return func() {}
}

func (f *fakeAdapter) GetOrderbook(ctx context.Context, id string) (*domain.OrderbookSnapshot, error) {
	if f.obErr != nil {
		return nil, f.obErr
	}
	ob, ok := f.orderbooks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ob, nil
}

func sampleSnapshot(venue, marketID, outcomeID string, bid, ask float64) domain.OrderbookSnapshot {
	return domain.NewSnapshot(venue, marketID, outcomeID,
		[]domain.PriceLevel{{Price: bid, Size: 100}},
		[]domain.PriceLevel{{Price: ask, Size: 100}},
		time.Now())
}
