package strategy

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// ExpiryFade takes the cheaper side near expiry once the spot market has
// gone quiet and the cheap side has skewed far enough from the midpoint to
// be worth taking.
func ExpiryFade(ctx EvalContext, params Params) (*domain.TradeSignal, error) {
	minSecLeft := params.Float("minSecLeft", 60)
	windowSec := params.Float("windowSec", 300)
	maxRecentSpotMovePct := params.Float("maxRecentSpotMovePct", 0.06)
	maxSpreadPct := params.Float("maxSpreadPct", 2.5)
	minSkewFromMid := params.Float("minSkewFromMid", 0.15)

	if ctx.TimeLeft < minSecLeft || ctx.TimeLeft > windowSec {
		return nil, nil
	}

	recentMove := ctx.SpotMovePct[30*time.Second]
	absMove := recentMove
	if absMove < 0 {
		absMove = -absMove
	}
	if absMove > maxRecentSpotMovePct {
		return nil, nil
	}

	dir := domain.DirectionUp
	book := ctx.UpBook
	tokenID := ctx.Market.UpTokenID
	current := ctx.Market.UpPrice
	if ctx.Market.DownPrice < ctx.Market.UpPrice {
		dir = domain.DirectionDown
		book = ctx.DownBook
		tokenID = ctx.Market.DownTokenID
		current = ctx.Market.DownPrice
	}

	if book.SpreadFrac*100 > maxSpreadPct {
		return nil, nil
	}

	skew := 0.50 - current
	if skew < minSkewFromMid {
		return nil, nil
	}

	confidence := clamp01(skew * 3)

	return &domain.TradeSignal{
		Strategy:    "expiry_fade",
		Asset:       ctx.Asset,
		Direction:   dir,
		TokenID:     tokenID,
		ConditionID: ctx.Market.ConditionID,
		Price:       current,
		Confidence:  confidence,
		Reason:      "cheaper side skewed from mid near expiry",
		Mode:        domain.OrderModeTaker,
		Features: map[string]any{
			"secToExpiry": ctx.TimeLeft,
			"skew":        skew,
		},
		Timestamp: ctx.Now,
	}, nil
}
