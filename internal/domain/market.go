package domain

import "time"

// Outcome is one side of a market: an id, a display name, a current price in
// [0,1], and an optional 24h volume.
type Outcome struct {
	ID     string
	Name   string
	Price  float64
	Volume *float64
}

// Market is one prediction-market entity, as fetched from a venue adapter.
// Outcome prices sum to approximately 1 for binary markets; no invariant is
// enforced for multi-outcome markets. A Market is never destroyed, only
// superseded by a later fetch or price event.
type Market struct {
	Venue       string
	ID          string
	Slug        string
	Question    string
	Outcomes    []Outcome
	Volume24h   float64
	Liquidity   float64
	CloseTime   *time.Time
	Resolved    bool
	Resolution  *string
	Tags        []string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PriceUpdate is an immutable tick produced by a venue adapter and consumed
// by bus listeners.
type PriceUpdate struct {
	Venue         string
	MarketID      string
	OutcomeID     string
	Price         float64
	PreviousPrice *float64
	TimestampMs   int64
}
