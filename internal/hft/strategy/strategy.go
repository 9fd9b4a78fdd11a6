// Package strategy holds the HFT engine's pure strategy evaluators: each one
// inspects an immutable EvalContext and returns either a TradeSignal or nil.
// None mutate state; the engine is solely responsible for acting on what
// they return.
package strategy

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// EvalContext is the immutable per-tick input every evaluator reads from.
// The engine builds one fresh value per tick from its Price Buffers, the
// current Scanner round, and the orderbook cache.
type EvalContext struct {
	Now time.Time

	Asset     string
	Market    domain.CryptoMarket
	RoundAge  float64
	TimeLeft  float64

	SpotMovePct   map[time.Duration]float64 // asset spot-move % over named windows
	PolyMovePct   map[time.Duration]float64
	PolyAgeSec    float64 // freshness of the last poly-side price sample

	SpotRange30s float64
	PolyMean30s  float64
	PolyReversals30s10c int // reversals(30s, 0.01)

	UpBook   domain.OrderbookSnapshot
	DownBook domain.OrderbookSnapshot
}

// Params is the resolved, per-strategy parameter set, sourced from
// config.HFTConfig.Params with the evaluator's own defaults filling any gap.
type Params map[string]float64

// Float returns params[key], or def if key is absent.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Evaluator is a pure strategy function: given a tick's context and its
// resolved parameters, it returns a signal or nil.
type Evaluator func(ctx EvalContext, params Params) (*domain.TradeSignal, error)

// Registry names evaluators for listing and per-strategy enable/disable by
// config; it holds no per-strategy mutable state.
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry builds a Registry containing the four built-in evaluators.
func NewRegistry() *Registry {
	return &Registry{evaluators: map[string]Evaluator{
		"momentum":       Momentum,
		"mean_reversion": MeanReversion,
		"penny_clipper":  PennyClipper,
		"expiry_fade":    ExpiryFade,
	}}
}

// Names lists every registered strategy name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	return names
}

// Get returns the evaluator registered under name, if any.
func (r *Registry) Get(name string) (Evaluator, bool) {
	e, ok := r.evaluators[name]
	return e, ok
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

