package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cloddsbot/core/internal/config"
	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/feed"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFeedManager(t *testing.T, venue string, adapter *fakeAdapter) *feed.Manager {
	t.Helper()
	feeds := map[string]config.FeedConfig{venue: {Enabled: true}}
	factories := map[string]feed.AdapterFactory{
		venue: func(v string, fc config.FeedConfig, log *slog.Logger) (feed.Adapter, error) {
			return adapter, nil
		},
	}
	m, err := feed.NewManager(feeds, factories, nil, discardLogger())
	if err != nil {
		t.Fatalf("feed.NewManager: %v", err)
	}
	return m
}

func TestFeedOrderbookCacheReturnsValue(t *testing.T) {
	snap := sampleSnapshot("kalshi", "mkt-1", "tok-1", 0.40, 0.42)
	adapter := &fakeAdapter{orderbooks: map[string]*domain.OrderbookSnapshot{"tok-1": &snap}}
	feeds := newTestFeedManager(t, "kalshi", adapter)

	cache := newFeedOrderbookCache(feeds, "kalshi")
	got, err := cache.GetOrderbook(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if got.BestBid != 0.40 || got.BestAsk != 0.42 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestFeedOrderbookCacheWrapsError(t *testing.T) {
	sentinel := errors.New("boom")
	adapter := &fakeAdapter{obErr: sentinel}
	feeds := newTestFeedManager(t, "kalshi", adapter)

	cache := newFeedOrderbookCache(feeds, "kalshi")
	_, err := cache.GetOrderbook(context.Background(), "tok-1")
	if err == nil || !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel error, got %v", err)
	}
}
