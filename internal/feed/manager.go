package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cloddsbot/core/internal/config"
	"github.com/cloddsbot/core/internal/domain"
	"golang.org/x/sync/errgroup"
)

// AdapterFactory constructs a concrete Adapter for one venue's config entry.
// Registered per-venue at Manager construction time; the manager itself
// knows nothing about any specific venue's wire protocol.
type AdapterFactory func(venue string, cfg config.FeedConfig, log *slog.Logger) (Adapter, error)

// Manager constructs venue adapters from the feeds config map, starts/stops
// them, and exposes a unified query surface.
type Manager struct {
	log      *slog.Logger
	adapters map[string]Adapter
	news     NewsStore

	mu            sync.Mutex
	nextListenerID int
	tickListeners  map[int]func(domain.PriceUpdate)
	obListeners    map[int]func(domain.OrderbookSnapshot)
}

// NewManager constructs adapters for every enabled entry in feeds using the
// supplied factories (keyed by venue name); an entry with no matching
// factory is skipped with a warning rather than failing construction.
func NewManager(feeds map[string]config.FeedConfig, factories map[string]AdapterFactory, news NewsStore, log *slog.Logger) (*Manager, error) {
	m := &Manager{
		log:           log,
		adapters:      make(map[string]Adapter),
		news:          news,
		tickListeners: make(map[int]func(domain.PriceUpdate)),
		obListeners:   make(map[int]func(domain.OrderbookSnapshot)),
	}

	for venue, fc := range feeds {
		if !fc.Enabled {
			continue
		}
		factory, ok := factories[venue]
		if !ok {
			log.Warn("feed: no adapter factory registered, skipping", slog.String("venue", venue))
			continue
		}
		adapter, err := factory(venue, fc, log.With(slog.String("venue", venue)))
		if err != nil {
			return nil, fmt.Errorf("feed: constructing %s adapter: %w", venue, err)
		}
		m.adapters[venue] = adapter
	}

	return m, nil
}

// Start calls Start on every registered adapter concurrently and resolves
// when all complete, wiring each adapter's ticks into the manager's own
// listener fan-out.
func (m *Manager) Start(ctx context.Context) error {
	for venue, a := range m.adapters {
		a.OnTick(func(p domain.PriceUpdate) { m.dispatchTick(p) })
		_ = venue
	}

	g, gctx := errgroup.WithContext(ctx)
	for venue, a := range m.adapters {
		venue, a := venue, a
		g.Go(func() error {
			if err := a.Start(gctx); err != nil {
				return fmt.Errorf("feed: starting %s: %w", venue, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop calls Stop on every registered adapter.
func (m *Manager) Stop(ctx context.Context) error {
	var firstErr error
	for venue, a := range m.adapters {
		if err := a.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("feed: stopping %s: %w", venue, err)
		}
	}
	return firstErr
}

// GetMarket dispatches to the named venue's adapter, or, if venue is empty,
// tries every adapter and returns the first non-nil result.
func (m *Manager) GetMarket(ctx context.Context, id, venue string) (*domain.Market, error) {
	if venue != "" {
		a, ok := m.adapters[venue]
		if !ok {
			return nil, fmt.Errorf("feed: unknown venue %q: %w", venue, domain.ErrNotFound)
		}
		return a.GetMarket(ctx, id)
	}
	for _, a := range m.adapters {
		mkt, err := a.GetMarket(ctx, id)
		if err == nil && mkt != nil {
			return mkt, nil
		}
	}
	return nil, domain.ErrNotFound
}

// SearchMarkets forwards to venue's adapter if given; otherwise fans out to
// every adapter in parallel, collects results, and sorts by 24h volume
// descending.
func (m *Manager) SearchMarkets(ctx context.Context, query, venue string) ([]domain.Market, error) {
	if venue != "" {
		a, ok := m.adapters[venue]
		if !ok {
			return nil, fmt.Errorf("feed: unknown venue %q: %w", venue, domain.ErrNotFound)
		}
		return a.SearchMarkets(ctx, query)
	}

	type result struct {
		markets []domain.Market
	}
	results := make(chan result, len(m.adapters))
	var wg sync.WaitGroup
	for _, a := range m.adapters {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			markets, err := a.SearchMarkets(ctx, query)
			if err != nil {
				m.log.Warn("feed: search failed", slog.Any("error", err))
				return
			}
			results <- result{markets: markets}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var all []domain.Market
	for r := range results {
		all = append(all, r.markets...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Volume24h > all[j].Volume24h })
	return all, nil
}

// GetPrice delegates to GetMarket and returns outcome[0].price.
func (m *Manager) GetPrice(ctx context.Context, venue, id string) (float64, error) {
	mkt, err := m.GetMarket(ctx, id, venue)
	if err != nil {
		return 0, err
	}
	if len(mkt.Outcomes) == 0 {
		return 0, fmt.Errorf("feed: market %s has no outcomes: %w", id, domain.ErrNotFound)
	}
	return mkt.Outcomes[0].Price, nil
}

// GetOrderbook forwards to the adapter if it implements OrderbookAdapter;
// otherwise synthesizes a degenerate single-level book from the market's
// outcome[0].
func (m *Manager) GetOrderbook(ctx context.Context, venue, id string) (*domain.OrderbookSnapshot, error) {
	a, ok := m.adapters[venue]
	if !ok {
		return nil, fmt.Errorf("feed: unknown venue %q: %w", venue, domain.ErrNotFound)
	}
	if ob, ok := a.(OrderbookAdapter); ok {
		return ob.GetOrderbook(ctx, id)
	}

	mkt, err := a.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(mkt.Outcomes) == 0 {
		return nil, fmt.Errorf("feed: market %s has no outcomes: %w", id, domain.ErrNotFound)
	}
	price := mkt.Outcomes[0].Price
	size := mkt.Volume24h
	if mkt.Outcomes[0].Volume != nil && *mkt.Outcomes[0].Volume > size {
		size = *mkt.Outcomes[0].Volume
	}
	if size < 1 {
		size = 1
	}
	snap := domain.NewSnapshot(venue, id, mkt.Outcomes[0].ID,
		[]domain.PriceLevel{{Price: price, Size: size}},
		[]domain.PriceLevel{{Price: price, Size: size}},
		mkt.UpdatedAt)
	return &snap, nil
}

// SubscribePrice tells the adapter to start streaming for this market if it
// supports subscriptions, attaches a filtered listener that only invokes
// callback for matching (venue, id) ticks, and returns an unsubscribe
// closure that both detaches the listener and tells the adapter to
// unsubscribe.
func (m *Manager) SubscribePrice(ctx context.Context, venue, id string, callback func(domain.PriceUpdate)) (unsubscribe func(), err error) {
	a, ok := m.adapters[venue]
	if !ok {
		return nil, fmt.Errorf("feed: unknown venue %q: %w", venue, domain.ErrNotFound)
	}

	if sub, ok := a.(SubscribableAdapter); ok {
		if err := sub.SubscribeToMarket(ctx, id); err != nil {
			return nil, fmt.Errorf("feed: subscribing %s/%s: %w", venue, id, err)
		}
	}

	filtered := func(p domain.PriceUpdate) {
		if p.Venue == venue && p.MarketID == id {
			callback(p)
		}
	}
	detach := m.OnTick(filtered)

	return func() {
		detach()
		if sub, ok := a.(SubscribableAdapter); ok {
			_ = sub.UnsubscribeFromMarket(context.Background(), id)
		}
	}, nil
}

// OnTick attaches a consumer of every tick across every adapter. Implements
// bus.FeedSource.
func (m *Manager) OnTick(fn func(domain.PriceUpdate)) func() {
	m.mu.Lock()
	id := m.nextListenerID
	m.nextListenerID++
	m.tickListeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.tickListeners, id)
		m.mu.Unlock()
	}
}

// OnOrderbook attaches a consumer of every orderbook snapshot the manager
// forwards. Implements bus.FeedSource.
func (m *Manager) OnOrderbook(fn func(domain.OrderbookSnapshot)) func() {
	m.mu.Lock()
	id := m.nextListenerID
	m.nextListenerID++
	m.obListeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.obListeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) dispatchTick(p domain.PriceUpdate) {
	m.mu.Lock()
	listeners := make([]func(domain.PriceUpdate), 0, len(m.tickListeners))
	for _, fn := range m.tickListeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

// News returns the optional news collaborator, or nil if none was wired.
func (m *Manager) News() NewsStore { return m.news }
