package strategy

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// PennyClipper buys a cheap, oscillating side at a discount to its own
// recent mean once the spot side confirms the same direction.
func PennyClipper(ctx EvalContext, params Params) (*domain.TradeSignal, error) {
	maxSpread := params.Float("maxSpread", 0.02)
	minOscRange := params.Float("minOscRange", 0.03)
	minReversals := params.Float("minReversals", 3)
	entryDiscount := params.Float("entryDiscount", 0.01)
	confirmWindowSec := 10 * time.Second

	if ctx.SpotRange30s < minOscRange {
		return nil, nil
	}
	if float64(ctx.PolyReversals30s10c) < minReversals {
		return nil, nil
	}

	side, ok := pickPennySide(ctx)
	if !ok {
		return nil, nil
	}

	if side.book.Spread > maxSpread {
		return nil, nil
	}
	if side.price < 0.08 || side.price > 0.50 {
		return nil, nil
	}

	discount := ctx.PolyMean30s - side.price
	if discount < entryDiscount {
		return nil, nil
	}

	confirm := ctx.SpotMovePct[confirmWindowSec]
	if (side.dir == domain.DirectionUp && confirm < 0) || (side.dir == domain.DirectionDown && confirm > 0) {
		return nil, nil
	}

	confidence := clamp01(float64(ctx.PolyReversals30s10c)/5) * clamp01(ctx.SpotRange30s/0.05)

	return &domain.TradeSignal{
		Strategy:    "penny_clipper",
		Asset:       ctx.Asset,
		Direction:   side.dir,
		TokenID:     side.tokenID,
		ConditionID: ctx.Market.ConditionID,
		Price:       side.price,
		Confidence:  confidence,
		Reason:      "oscillating discount to recent mean",
		Mode:        domain.OrderModeMaker,
		Features: map[string]any{
			"discount":  discount,
			"reversals": ctx.PolyReversals30s10c,
			"range30s":  ctx.SpotRange30s,
		},
		Timestamp: ctx.Now,
	}, nil
}

type pennySide struct {
	dir     domain.Direction
	book    domain.OrderbookSnapshot
	tokenID string
	price   float64
}

// pickPennySide prefers whichever side is priced within the penny range; if
// both qualify, the cheaper one is chosen.
func pickPennySide(ctx EvalContext) (pennySide, bool) {
	up := pennySide{domain.DirectionUp, ctx.UpBook, ctx.Market.UpTokenID, ctx.Market.UpPrice}
	down := pennySide{domain.DirectionDown, ctx.DownBook, ctx.Market.DownTokenID, ctx.Market.DownPrice}

	upOK := up.price >= 0.08 && up.price <= 0.50
	downOK := down.price >= 0.08 && down.price <= 0.50

	switch {
	case upOK && downOK:
		if up.price <= down.price {
			return up, true
		}
		return down, true
	case upOK:
		return up, true
	case downOK:
		return down, true
	default:
		return pennySide{}, false
	}
}
