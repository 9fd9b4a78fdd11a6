package strategy

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// Momentum trades the side implied by a recent spot-price move once the
// expected poly price has lagged the move by at least minLagCents.
func Momentum(ctx EvalContext, params Params) (*domain.TradeSignal, error) {
	window := 30 * time.Second
	spotMove := ctx.SpotMovePct[window]

	minSpotMovePct := params.Float("minSpotMovePct", 0.15)
	maxPolyStaleSec := params.Float("maxPolyStaleSec", 5)
	maxSpreadPct := params.Float("maxSpreadPct", 2.0)
	minLagCents := params.Float("minLagCents", 0.01)

	absMove := spotMove
	if absMove < 0 {
		absMove = -absMove
	}
	if absMove < minSpotMovePct {
		return nil, nil
	}
	if ctx.PolyAgeSec > maxPolyStaleSec {
		return nil, nil
	}

	dir := domain.DirectionUp
	book := ctx.UpBook
	tokenID := ctx.Market.UpTokenID
	current := ctx.Market.UpPrice
	if spotMove < 0 {
		dir = domain.DirectionDown
		book = ctx.DownBook
		tokenID = ctx.Market.DownTokenID
		current = ctx.Market.DownPrice
	}

	if book.SpreadFrac*100 > maxSpreadPct {
		return nil, nil
	}

	expected := 0.50 + absMove*5/100
	if expected-current < minLagCents {
		return nil, nil
	}

	confidence := clamp01(absMove / 0.30)

	return &domain.TradeSignal{
		Strategy:    "momentum",
		Asset:       ctx.Asset,
		Direction:   dir,
		TokenID:     tokenID,
		ConditionID: ctx.Market.ConditionID,
		Price:       current,
		Confidence:  confidence,
		Reason:      "spot move lags poly price",
		Mode:        domain.OrderModeMakerThenTaker,
		Features: map[string]any{
			"spotMovePct": spotMove,
			"expected":    expected,
			"current":     current,
		},
		Timestamp: ctx.Now,
	}, nil
}
