package hft

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/hft/strategy"
)

// BacktestTick is one historical observation fed to the backtest runner. Both
// sides of the asset's round pair are required since the evaluators reason
// about both books; the spot-move fields reuse the UP price series as the
// underlying spot proxy, since a backtest only replays the market's own
// recorded prices and has no separate external spot feed to draw from.
type BacktestTick struct {
	At       time.Time
	UpPrice  float64
	DownPrice float64
}

// BacktestRequest configures one historical replay of a single registered
// strategy against one asset's recorded round history.
type BacktestRequest struct {
	Asset        string
	Strategy     string
	Params       strategy.Params
	SizePerTrade float64
	Ticks        []BacktestTick
}

// BacktestResult is the outcome of a replay: every simulated close plus
// aggregate stats.
type BacktestResult struct {
	Trades []domain.ClosedPosition
	Stats  Stats
}

// RunBacktest replays req.Ticks in order through the named strategy
// evaluator, opening at most one position per asset at a time (mirroring
// Engine.act/PositionManager.CanOpen) and closing it the moment any of the
// eight exit rules fires against the subsequent ticks. There is no execution
// adapter in the loop: entries and exits fill instantly at the signal/quote
// price, since a backtest measures strategy quality, not fill slippage.
func RunBacktest(req BacktestRequest, registry *strategy.Registry) (BacktestResult, error) {
	eval, ok := registry.Get(req.Strategy)
	if !ok {
		return BacktestResult{}, fmt.Errorf("hft: unknown strategy %q", req.Strategy)
	}
	if req.SizePerTrade <= 0 {
		req.SizePerTrade = 1
	}

	buffers := NewBuffers()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pm := NewPositionManager(DefaultPositionManagerConfig(), nil, log)

	var openID string

	for i, tick := range req.Ticks {
		buffers.Push(req.Asset, tick.UpPrice, tick.At)

		market := domain.CryptoMarket{
			Asset: req.Asset, UpPrice: tick.UpPrice, DownPrice: tick.DownPrice,
			UpTokenID: req.Asset + "-up", DownTokenID: req.Asset + "-down",
		}

		if openID == "" && pm.CanOpen(req.Asset, domain.DirectionUp) && !pm.InCooldown(req.Asset, tick.At) {
			ctx := buildBacktestContext(buffers, req.Asset, market, tick.At, i)
			sig, err := eval(ctx, req.Params)
			if err != nil {
				return BacktestResult{}, fmt.Errorf("hft: backtest evaluator: %w", err)
			}
			if sig != nil {
				id := fmt.Sprintf("bt-%d", i)
				if openErr := pm.Open(domain.OpenPosition{
					ID: id, Strategy: sig.Strategy, Asset: req.Asset, Direction: sig.Direction,
					TokenID: sig.TokenID, EntryPrice: sig.Price, Shares: req.SizePerTrade,
					CurrentPrice: sig.Price, ExpiresAt: tick.At.Add(15 * time.Minute),
					OpenedAt: tick.At, UpdatedAt: tick.At,
				}); openErr == nil {
					openID = id
				}
			}
			continue
		}

		if openID == "" {
			continue
		}

		p, ok := pm.open[openID]
		if !ok {
			openID = ""
			continue
		}
		price := tick.UpPrice
		if p.Direction == domain.DirectionDown {
			price = tick.DownPrice
		}
		book := domain.OrderbookSnapshot{BestBid: price, MidPrice: price, BidDepth: 1000}
		_ = pm.Tick(openID, price, book, tick.At)

		if d, closeNow := pm.evaluateExit(*p, book, tick.At); closeNow {
			if _, err := pm.Close(context.Background(), openID, d.ExitPrice, d.Reason, d.UseMaker, tick.At); err == nil {
				openID = ""
			}
		}
	}

	return BacktestResult{Trades: pm.GetClosed(), Stats: pm.GetStats()}, nil
}

// buildBacktestContext assembles a minimal EvalContext from the replayed
// tick history, mirroring Engine.buildContext but sourced entirely from the
// backtest's own price buffer instead of live feeds/scanner state.
func buildBacktestContext(buffers *Buffers, asset string, market domain.CryptoMarket, now time.Time, tickIndex int) strategy.EvalContext {
	buf := buffers.Get(asset)
	_, age, _ := buf.Latest(now)

	spotMove := map[time.Duration]float64{
		10 * time.Second: buf.MovePct(10 * time.Second),
		30 * time.Second: buf.MovePct(30 * time.Second),
		5 * time.Minute:  buf.MovePct(5 * time.Minute),
	}

	upBook := domain.NewSnapshot("", "", "up",
		[]domain.PriceLevel{{Price: market.UpPrice - 0.002, Size: 1000}},
		[]domain.PriceLevel{{Price: market.UpPrice + 0.002, Size: 1000}}, now)
	downBook := domain.NewSnapshot("", "", "down",
		[]domain.PriceLevel{{Price: market.DownPrice - 0.002, Size: 1000}},
		[]domain.PriceLevel{{Price: market.DownPrice + 0.002, Size: 1000}}, now)

	roundAge := float64(tickIndex) // ticks since replay start stand in for elapsed round time
	timeLeft := 900 - roundAge
	if timeLeft < 0 {
		timeLeft = 0
	}

	return strategy.EvalContext{
		Now: now, Asset: asset, Market: market,
		RoundAge: roundAge, TimeLeft: timeLeft,
		SpotMovePct: spotMove, PolyMovePct: spotMove,
		PolyAgeSec:   age.Seconds(),
		SpotRange30s: buf.Range(30 * time.Second),
		PolyMean30s:  buf.Mean(30 * time.Second),
		PolyReversals30s10c: buf.Reversals(30*time.Second, 0.01),
		UpBook: upBook, DownBook: downBook,
	}
}
