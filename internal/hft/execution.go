package hft

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// ExecutionConfig parameterizes the order-mode execution protocol.
type ExecutionConfig struct {
	TakerBufferCents     float64
	MakerTimeoutEntryMs  int64
	MakerTimeoutExitMs   int64
	DryRun               bool
}

// DefaultExecutionConfig matches the spec's stated defaults.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		TakerBufferCents:    0.01,
		MakerTimeoutEntryMs: 15000,
		MakerTimeoutExitMs:  1000,
	}
}

// Executor fills TradeSignals and exit requests against an
// domain.ExecutionAdapter per the maker/taker/fok/maker_then_taker protocol.
type Executor struct {
	adapter domain.ExecutionAdapter
	cfg     ExecutionConfig
	log     *slog.Logger

	entryInFlight atomic.Bool
}

// NewExecutor constructs an Executor. adapter may be nil only in dry-run mode.
func NewExecutor(adapter domain.ExecutionAdapter, cfg ExecutionConfig, log *slog.Logger) *Executor {
	return &Executor{adapter: adapter, cfg: cfg, log: log}
}

// Fill is the result of executing one order against the protocol: whether
// it filled, at what average price, and how much size.
type Fill struct {
	Filled       bool
	AvgPrice     float64
	FilledSize   float64
	OrderID      string
	WasMaker     bool
}

// EnterPosition fills a TradeSignal as an entry order, honoring the
// entryInFlight guard that allows at most one entry order at a time.
func (e *Executor) EnterPosition(ctx context.Context, sig domain.TradeSignal, venue, marketID string, size float64, negRisk bool) (Fill, error) {
	if !e.entryInFlight.CompareAndSwap(false, true) {
		return Fill{}, fmt.Errorf("hft: entry order already in flight")
	}
	defer e.entryInFlight.Store(false)

	if e.cfg.DryRun {
		return Fill{Filled: true, AvgPrice: sig.Price, FilledSize: size, WasMaker: true}, nil
	}

	req := domain.OrderRequest{
		Venue: venue, MarketID: marketID, TokenID: sig.TokenID,
		Side: domain.SideBuy, Price: sig.Price, Size: size, NegRisk: negRisk,
	}
	return e.execute(ctx, req, sig.Mode, e.cfg.MakerTimeoutEntryMs)
}

// ExitPosition fills a sell order for an existing position, honoring
// useMaker — the exit's order-mode hint from the exit rule that fired.
func (e *Executor) ExitPosition(ctx context.Context, venue, marketID, tokenID string, price, size float64, negRisk, useMaker bool) (Fill, error) {
	if e.cfg.DryRun {
		return Fill{Filled: true, AvgPrice: price, FilledSize: size, WasMaker: useMaker}, nil
	}

	req := domain.OrderRequest{
		Venue: venue, MarketID: marketID, TokenID: tokenID,
		Side: domain.SideSell, Price: price, Size: size, NegRisk: negRisk,
	}
	mode := domain.OrderModeTaker
	if useMaker {
		mode = domain.OrderModeMakerThenTaker
	}
	return e.execute(ctx, req, mode, e.cfg.MakerTimeoutExitMs)
}

func (e *Executor) execute(ctx context.Context, req domain.OrderRequest, mode domain.OrderMode, makerTimeoutMs int64) (Fill, error) {
	switch mode {
	case domain.OrderModeTaker, domain.OrderModeFOK:
		return e.submitTaker(ctx, req, mode == domain.OrderModeFOK)

	case domain.OrderModeMaker:
		return e.submitMaker(ctx, req)

	case domain.OrderModeMakerThenTaker:
		fill, err := e.submitMaker(ctx, req)
		if err != nil {
			return Fill{}, err
		}
		if fill.Filled && fill.FilledSize >= req.Size {
			return fill, nil
		}

		select {
		case <-ctx.Done():
			return fill, ctx.Err()
		case <-time.After(time.Duration(makerTimeoutMs) * time.Millisecond):
		}

		if fill.OrderID != "" {
			if err := e.adapter.CancelOrder(ctx, req.Venue, fill.OrderID); err != nil {
				e.log.Warn("hft: best-effort cancel of resting maker order failed",
					slog.String("order_id", fill.OrderID), slog.Any("error", err))
			}
		}

		remaining := req.Size - fill.FilledSize
		if remaining <= 0 {
			return fill, nil
		}
		takerReq := req
		takerReq.Size = remaining
		return e.submitTaker(ctx, takerReq, false)

	default:
		return Fill{}, fmt.Errorf("hft: unknown order mode %q", mode)
	}
}

func (e *Executor) submitTaker(ctx context.Context, req domain.OrderRequest, fok bool) (Fill, error) {
	buffer := e.cfg.TakerBufferCents
	if req.Side == domain.SideBuy {
		req.Price += buffer
	} else {
		req.Price -= buffer
	}
	req.OrderType = domain.OrderTypeGTC
	if fok {
		req.OrderType = domain.OrderTypeFOK
	}
	req.PostOnly = false

	resp, err := e.submit(ctx, req)
	if err != nil {
		return Fill{}, err
	}
	return Fill{
		Filled:     resp.Success,
		AvgPrice:   resp.AvgFillPrice,
		FilledSize: resp.FilledSize,
		OrderID:    resp.OrderID,
		WasMaker:   false,
	}, nil
}

func (e *Executor) submitMaker(ctx context.Context, req domain.OrderRequest) (Fill, error) {
	req.OrderType = domain.OrderTypeGTC
	req.PostOnly = true

	resp, err := e.submit(ctx, req)
	if err != nil {
		return Fill{}, err
	}
	return Fill{
		Filled:     resp.Success && resp.FilledSize >= req.Size,
		AvgPrice:   resp.AvgFillPrice,
		FilledSize: resp.FilledSize,
		OrderID:    resp.OrderID,
		WasMaker:   true,
	}, nil
}

func (e *Executor) submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	if req.Side == domain.SideBuy {
		return e.adapter.BuyLimit(ctx, req)
	}
	return e.adapter.SellLimit(ctx, req)
}
