// Package feed builds venue adapters from configuration and exposes a
// unified search / get-market / get-price / get-orderbook / subscribe-price
// surface over all of them.
package feed

import (
	"context"

	"github.com/cloddsbot/core/internal/domain"
)

// Adapter is the contract a venue integration must satisfy. Adapters that
// own a WebSocket are expected to reconnect internally with bounded
// exponential backoff and re-subscribe on reconnect; the manager does not
// retry on their behalf.
type Adapter interface {
	// Start begins the adapter's connection/polling lifecycle. It returns
	// once the adapter has either connected or permanently failed to.
	Start(ctx context.Context) error
	// Stop tears the adapter down.
	Stop(ctx context.Context) error

	GetMarket(ctx context.Context, id string) (*domain.Market, error)
	SearchMarkets(ctx context.Context, query string) ([]domain.Market, error)

	// OnTick registers a callback invoked for every price update the
	// adapter observes, across all markets. Returns an unsubscribe func.
	OnTick(fn func(domain.PriceUpdate)) (unsubscribe func())
}

// OrderbookAdapter is an optional capability: adapters that can serve a real
// orderbook implement it; the manager synthesizes a degenerate book for
// adapters that don't.
type OrderbookAdapter interface {
	GetOrderbook(ctx context.Context, id string) (*domain.OrderbookSnapshot, error)
}

// SubscribableAdapter is an optional capability for adapters that support
// per-market subscription (vs. a firehose OnTick).
type SubscribableAdapter interface {
	SubscribeToMarket(ctx context.Context, id string) error
	UnsubscribeFromMarket(ctx context.Context, id string) error
}

// NewsStore is the optional collaborator a "news" feed entry wires in. Its
// absence is not an error.
type NewsStore interface {
	RecentHeadlines(ctx context.Context, limit int) ([]string, error)
}
