package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/config"
	"github.com/cloddsbot/core/internal/domain"
)

type fakeAdapter struct {
	markets map[string]domain.Market
	ticks   []func(domain.PriceUpdate)
}

func (f *fakeAdapter) Start(ctx context.Context) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error  { return nil }

func (f *fakeAdapter) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (f *fakeAdapter) SearchMarkets(ctx context.Context, query string) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeAdapter) OnTick(fn func(domain.PriceUpdate)) func() {
	f.ticks = append(f.ticks, fn)
	return func() {}
}

func discardLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestManager(t *testing.T) (*Manager, *fakeAdapter) {
	t.Helper()
	adapter := &fakeAdapter{markets: map[string]domain.Market{
		"m1": {
			Venue:     "kalshi",
			ID:        "m1",
			Outcomes:  []domain.Outcome{{ID: "yes", Price: 0.42}},
			Volume24h: 1000,
			UpdatedAt: time.Now(),
		},
	}}
	factories := map[string]AdapterFactory{
		"kalshi": func(venue string, cfg config.FeedConfig, log *slog.Logger) (Adapter, error) {
			return adapter, nil
		},
	}
	feeds := map[string]config.FeedConfig{"kalshi": {Enabled: true, BaseURL: "https://example.test"}}
	m, err := NewManager(feeds, factories, nil, discardLog())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, adapter
}

func TestGetOrderbookSynthesizesDegenerateBook(t *testing.T) {
	m, _ := newTestManager(t)

	ob, err := m.GetOrderbook(context.Background(), "kalshi", "m1")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if ob.BestBid != 0.42 || ob.BestAsk != 0.42 {
		t.Fatalf("expected degenerate book at outcome price, got bid=%v ask=%v", ob.BestBid, ob.BestAsk)
	}
	if ob.BidDepth != 1000 || ob.AskDepth != 1000 {
		t.Fatalf("expected depth from 24h volume, got bid=%v ask=%v", ob.BidDepth, ob.AskDepth)
	}
}

func TestGetPriceDelegatesToFirstOutcome(t *testing.T) {
	m, _ := newTestManager(t)
	price, err := m.GetPrice(context.Background(), "kalshi", "m1")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price != 0.42 {
		t.Fatalf("expected 0.42, got %v", price)
	}
}

func TestSubscribePriceFiltersByVenueAndMarket(t *testing.T) {
	m, _ := newTestManager(t)

	var gotOther, gotMatch int
	unsubOther, _ := m.SubscribePrice(context.Background(), "kalshi", "other", func(domain.PriceUpdate) { gotOther++ })
	defer unsubOther()
	unsub, _ := m.SubscribePrice(context.Background(), "kalshi", "m1", func(domain.PriceUpdate) { gotMatch++ })

	m.dispatchTick(domain.PriceUpdate{Venue: "kalshi", MarketID: "m1", Price: 0.5})
	m.dispatchTick(domain.PriceUpdate{Venue: "kalshi", MarketID: "other-market", Price: 0.5})

	if gotMatch != 1 {
		t.Fatalf("expected exactly 1 matching tick, got %d", gotMatch)
	}
	if gotOther != 0 {
		t.Fatalf("expected 0 ticks for unrelated subscription, got %d", gotOther)
	}

	unsub()
	m.dispatchTick(domain.PriceUpdate{Venue: "kalshi", MarketID: "m1", Price: 0.6})
	if gotMatch != 1 {
		t.Fatalf("expected unsubscribe to stop delivery, got %d calls", gotMatch)
	}
}
