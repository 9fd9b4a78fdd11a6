package strategy

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// MeanReversion fades a range-bound round back toward 0.50 once a side is
// cheap or expensive enough and order flow is not leaning against it.
func MeanReversion(ctx EvalContext, params Params) (*domain.TradeSignal, error) {
	minRoundAgeSec := params.Float("minRoundAgeSec", 120)
	maxSpotMovePct := params.Float("maxSpotMovePct", 0.08)
	cheapThreshold := params.Float("cheapThreshold", 0.30)
	expensiveThreshold := params.Float("expensiveThreshold", 0.72)
	minObi := params.Float("minObi", -0.1)

	if ctx.RoundAge < minRoundAgeSec {
		return nil, nil
	}

	longMove := ctx.SpotMovePct[5*time.Minute]
	absMove := longMove
	if absMove < 0 {
		absMove = -absMove
	}
	if absMove > maxSpotMovePct {
		return nil, nil
	}

	var dir domain.Direction
	var book domain.OrderbookSnapshot
	var tokenID string
	var current float64

	switch {
	case ctx.Market.UpPrice <= cheapThreshold:
		dir, book, tokenID, current = domain.DirectionUp, ctx.UpBook, ctx.Market.UpTokenID, ctx.Market.UpPrice
	case ctx.Market.DownPrice <= cheapThreshold:
		dir, book, tokenID, current = domain.DirectionDown, ctx.DownBook, ctx.Market.DownTokenID, ctx.Market.DownPrice
	case ctx.Market.UpPrice >= expensiveThreshold:
		dir, book, tokenID, current = domain.DirectionDown, ctx.DownBook, ctx.Market.DownTokenID, ctx.Market.DownPrice
	case ctx.Market.DownPrice >= expensiveThreshold:
		dir, book, tokenID, current = domain.DirectionUp, ctx.UpBook, ctx.Market.UpTokenID, ctx.Market.UpPrice
	default:
		return nil, nil
	}

	if book.Imbalance < minObi {
		return nil, nil
	}

	confidence := clamp01((1 - current) * 1.5)

	return &domain.TradeSignal{
		Strategy:    "mean_reversion",
		Asset:       ctx.Asset,
		Direction:   dir,
		TokenID:     tokenID,
		ConditionID: ctx.Market.ConditionID,
		Price:       current,
		Confidence:  confidence,
		Reason:      "price extreme in a range-bound round",
		Mode:        domain.OrderModeMaker,
		Features: map[string]any{
			"roundAgeSec": ctx.RoundAge,
			"longMove":    longMove,
			"obi":         book.Imbalance,
		},
		Timestamp: ctx.Now,
	}, nil
}
