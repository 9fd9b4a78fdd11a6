package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is an immutable value describing one side-pair of an
// orderbook at a point in time. Bids are ordered descending by price, asks
// ascending. Invariant: BestBid <= BestAsk when both sides are non-empty;
// Spread >= 0.
type OrderbookSnapshot struct {
	Venue       string
	MarketID    string
	OutcomeID   string
	Bids        []PriceLevel
	Asks        []PriceLevel
	BestBid     float64
	BestAsk     float64
	Spread      float64
	SpreadFrac  float64
	MidPrice    float64
	BidDepth    float64
	AskDepth    float64
	Imbalance   float64 // (bidDepth - askDepth) / (bidDepth + askDepth), in [-1, 1]
	Timestamp   time.Time
}

// NewSnapshot computes the derived fields (best bid/ask, spread, mid,
// depths, imbalance) from raw bid/ask levels. Bids/asks must already be
// sorted (descending/ascending respectively) by the caller.
func NewSnapshot(venue, marketID, outcomeID string, bids, asks []PriceLevel, ts time.Time) OrderbookSnapshot {
	snap := OrderbookSnapshot{
		Venue:     venue,
		MarketID:  marketID,
		OutcomeID: outcomeID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
	if len(bids) > 0 {
		snap.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		snap.BestAsk = asks[0].Price
	}
	for _, l := range bids {
		snap.BidDepth += l.Size
	}
	for _, l := range asks {
		snap.AskDepth += l.Size
	}
	if len(bids) > 0 && len(asks) > 0 {
		snap.Spread = snap.BestAsk - snap.BestBid
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
		if snap.MidPrice != 0 {
			snap.SpreadFrac = snap.Spread / snap.MidPrice
		}
	}
	if total := snap.BidDepth + snap.AskDepth; total > 0 {
		snap.Imbalance = (snap.BidDepth - snap.AskDepth) / total
	}
	return snap
}
