package hft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/hft/strategy"
	"github.com/google/uuid"
)

// OrderbookCache resolves the current orderbook for a token, shared by
// strategy evaluation and exit checking.
type OrderbookCache interface {
	GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
}

// EngineConfig bundles the config an Engine needs beyond its collaborators.
type EngineConfig struct {
	Assets           []string
	StrategyParams   map[string]strategy.Params
	EnabledStrategies map[string]bool
	SizePerTrade     float64
	NegRisk          bool
	Venue            string
	ExitCheckInterval time.Duration
}

// Engine wires the Price Buffers, Market Scanner, strategy Registry,
// Position Manager, and Executor together: on each spot tick it builds an
// EvalContext, runs every enabled strategy, and acts on the
// highest-confidence signal; on a fixed interval it runs CheckExits against
// every open position.
type Engine struct {
	cfg       EngineConfig
	buffers   *Buffers
	polyBuffers *Buffers
	scanner   *Scanner
	registry  *strategy.Registry
	positions *PositionManager
	executor  *Executor
	books     OrderbookCache
	log       *slog.Logger
}

// NewEngine constructs an Engine from its collaborators.
func NewEngine(cfg EngineConfig, scanner *Scanner, positions *PositionManager, executor *Executor, books OrderbookCache, log *slog.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		buffers:     NewBuffers(),
		polyBuffers: NewBuffers(),
		scanner:     scanner,
		registry:    strategy.NewRegistry(),
		positions:   positions,
		executor:    executor,
		books:       books,
		log:         log,
	}
}

// Buffers returns the engine's spot-side price buffers, read by the feature
// snapshot endpoint and the price-archival job.
func (e *Engine) Buffers() *Buffers { return e.buffers }

// Positions returns the engine's Position Manager, read by the performance
// endpoint and the position-archival job.
func (e *Engine) Positions() *PositionManager { return e.positions }

// OnSpotTick feeds a new spot price sample for asset and immediately
// evaluates every enabled strategy against the current round.
func (e *Engine) OnSpotTick(ctx context.Context, asset string, price float64, at time.Time) {
	e.buffers.Push(asset, price, at)
	if err := e.evaluate(ctx, asset, at); err != nil {
		e.log.Warn("hft: strategy evaluation failed", slog.String("asset", asset), slog.Any("error", err))
	}
}

// OnPolyTick feeds a new poly-side price sample for asset, used by
// freshness and oscillation features.
func (e *Engine) OnPolyTick(asset string, price float64, at time.Time) {
	e.polyBuffers.Push(asset, price, at)
}

func (e *Engine) buildContext(ctx context.Context, asset string, now time.Time) (strategy.EvalContext, bool) {
	round := e.scanner.Current()
	market, ok := round.Markets[asset]
	if !ok || !e.scanner.CanTrade(round) {
		return strategy.EvalContext{}, false
	}

	spotBuf := e.buffers.Get(asset)
	polyBuf := e.polyBuffers.Get(asset)

	_, polyAge, havePoly := polyBuf.Latest(now)
	polyAgeSec := 9999.0
	if havePoly {
		polyAgeSec = polyAge.Seconds()
	}

	upBook, _ := e.books.GetOrderbook(ctx, market.UpTokenID)
	downBook, _ := e.books.GetOrderbook(ctx, market.DownTokenID)

	return strategy.EvalContext{
		Now:      now,
		Asset:    asset,
		Market:   market,
		RoundAge: round.AgeSec,
		TimeLeft: round.TimeLeft,
		SpotMovePct: map[time.Duration]float64{
			10 * time.Second: spotBuf.MovePct(10 * time.Second),
			30 * time.Second: spotBuf.MovePct(30 * time.Second),
			5 * time.Minute:  spotBuf.MovePct(5 * time.Minute),
		},
		PolyAgeSec:          polyAgeSec,
		SpotRange30s:        spotBuf.Range(30 * time.Second),
		PolyMean30s:         polyBuf.Mean(30 * time.Second),
		PolyReversals30s10c: polyBuf.Reversals(30*time.Second, 0.01),
		UpBook:              upBook,
		DownBook:            downBook,
	}, true
}

// evaluate runs every enabled strategy for asset and acts on the
// highest-confidence signal, if any.
func (e *Engine) evaluate(ctx context.Context, asset string, now time.Time) error {
	evalCtx, ok := e.buildContext(ctx, asset, now)
	if !ok {
		return nil
	}

	var best *domain.TradeSignal
	for _, name := range e.registry.Names() {
		if e.cfg.EnabledStrategies != nil && !e.cfg.EnabledStrategies[name] {
			continue
		}
		fn, _ := e.registry.Get(name)
		sig, err := fn(evalCtx, e.cfg.StrategyParams[name])
		if err != nil {
			e.log.Warn("hft: evaluator error", slog.String("strategy", name), slog.Any("error", err))
			continue
		}
		if sig == nil {
			continue
		}
		if best == nil || sig.Confidence > best.Confidence {
			best = sig
		}
	}

	if best == nil {
		return nil
	}
	return e.act(ctx, *best, evalCtx.Market)
}

func (e *Engine) act(ctx context.Context, sig domain.TradeSignal, market domain.CryptoMarket) error {
	if !e.positions.CanOpen(sig.Asset, sig.Direction) {
		return nil
	}
	if e.positions.InCooldown(sig.Asset, sig.Timestamp) {
		return nil
	}

	fill, err := e.executor.EnterPosition(ctx, sig, e.cfg.Venue, market.ConditionID, e.cfg.SizePerTrade, e.cfg.NegRisk)
	if err != nil {
		return fmt.Errorf("hft: enter position: %w", err)
	}
	if !fill.Filled || fill.FilledSize <= 0 {
		return nil
	}

	now := sig.Timestamp
	pos := domain.OpenPosition{
		ID:            uuid.NewString(),
		Strategy:      sig.Strategy,
		Asset:         sig.Asset,
		Direction:     sig.Direction,
		TokenID:       sig.TokenID,
		ConditionID:   sig.ConditionID,
		EntryPrice:    fill.AvgPrice,
		Shares:        fill.FilledSize,
		CurrentPrice:  fill.AvgPrice,
		ExpiresAt:     market.ExpiresAt,
		OpenedAt:      now,
		UpdatedAt:     now,
		WasMakerEntry: fill.WasMaker,
	}
	if err := e.positions.Open(pos); err != nil {
		return fmt.Errorf("hft: record opened position: %w", err)
	}

	e.log.Info("hft: position opened",
		slog.String("strategy", sig.Strategy), slog.String("asset", sig.Asset),
		slog.String("direction", string(sig.Direction)), slog.Float64("entry_price", fill.AvgPrice))
	return nil
}

// RunExitLoop periodically checks every open position for an exit and acts
// on whatever CheckExits returns, until ctx is cancelled.
func (e *Engine) RunExitLoop(ctx context.Context) error {
	interval := e.cfg.ExitCheckInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	getBook := func(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
		return e.books.GetOrderbook(ctx, tokenID)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			decisions, err := e.positions.CheckExits(ctx, now, getBook)
			if err != nil {
				e.log.Error("hft: check exits failed", slog.Any("error", err))
				continue
			}
			for _, d := range decisions {
				e.handleExit(ctx, d)
			}
		}
	}
}

func (e *Engine) handleExit(ctx context.Context, d ExitDecision) {
	if e.positions.InCooldown(d.Position.Asset, time.Now()) {
		return
	}

	fill, err := e.executor.ExitPosition(ctx, e.cfg.Venue, d.Position.ConditionID, d.Position.TokenID, d.ExitPrice, d.Position.Shares, e.cfg.NegRisk, d.UseMaker)
	if err != nil {
		e.log.Error("hft: exit order failed", slog.String("position_id", d.Position.ID), slog.Any("error", err))
		return
	}
	if !fill.Filled {
		return
	}

	if _, err := e.positions.Close(ctx, d.Position.ID, fill.AvgPrice, d.Reason, fill.WasMaker, time.Now()); err != nil {
		e.log.Error("hft: close position", slog.String("position_id", d.Position.ID), slog.Any("error", err))
	}
}
