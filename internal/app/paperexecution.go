package app

import (
	"context"
	"log/slog"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/google/uuid"
)

// paperExecutionAdapter is the default domain.ExecutionAdapter: it fills
// every order instantly at the requested price rather than routing to a
// real venue. Concrete per-venue order submission is a venue-specific
// concern outside this module, the same way venue adapter wire protocols
// are for market data; this keeps the Executor's order-mode protocol
// (maker/taker/fok/maker_then_taker) exercisable end to end without one.
// A real venue's ExecutionAdapter can replace this wherever one is wired
// in, without the Executor or Engine knowing the difference.
type paperExecutionAdapter struct {
	log *slog.Logger
}

func newPaperExecutionAdapter(log *slog.Logger) *paperExecutionAdapter {
	return &paperExecutionAdapter{log: log}
}

func (p *paperExecutionAdapter) BuyLimit(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	return p.fill(req), nil
}

func (p *paperExecutionAdapter) SellLimit(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	return p.fill(req), nil
}

func (p *paperExecutionAdapter) CancelOrder(ctx context.Context, venue, orderID string) error {
	p.log.Debug("paper execution: cancel", slog.String("venue", venue), slog.String("order_id", orderID))
	return nil
}

func (p *paperExecutionAdapter) fill(req domain.OrderRequest) domain.OrderResponse {
	resp := domain.OrderResponse{
		Success:      true,
		OrderID:      uuid.NewString(),
		FilledSize:   req.Size,
		AvgFillPrice: req.Price,
	}
	p.log.Info("paper execution: filled",
		slog.String("venue", req.Venue), slog.String("token_id", req.TokenID),
		slog.String("side", string(req.Side)), slog.Float64("price", req.Price), slog.Float64("size", req.Size))
	return resp
}
