package app

import (
	"context"
	"strings"
	"time"

	"github.com/cloddsbot/core/internal/bus"
	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/hft"
)

// busTickSource adapts bus.Bus's OnTick(bus.TickListener) to ws.TickSource's
// OnTick(func(domain.PriceUpdate)): method signatures must use identical
// parameter types for interface satisfaction, and a named function type is
// never identical to the plain func type it's defined over.
type busTickSource struct {
	bus *bus.Bus
}

func (b busTickSource) OnTick(fn func(domain.PriceUpdate)) {
	b.bus.OnTick(fn)
}

// engineTickBridge feeds bus ticks from the HFT venue into the engine's
// spot-side price buffers, extracting the asset symbol from the
// "{asset}-{slotStart}" market-id convention feedRoundSource resolves
// markets under. Ticks from any other venue are ignored.
func engineTickBridge(engine *hft.Engine, hftVenue string) func(domain.PriceUpdate) {
	return func(p domain.PriceUpdate) {
		if p.Venue != hftVenue {
			return
		}
		asset := assetFromMarketID(p.MarketID)
		if asset == "" {
			return
		}
		engine.OnSpotTick(context.Background(), asset, p.Price, time.UnixMilli(p.TimestampMs))
	}
}

// assetFromMarketID extracts the asset symbol from a "{asset}-{slotStart}"
// market id, or "" if the id doesn't follow that convention.
func assetFromMarketID(marketID string) string {
	idx := strings.LastIndex(marketID, "-")
	if idx <= 0 {
		return ""
	}
	return marketID[:idx]
}
