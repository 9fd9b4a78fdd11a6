package domain

import "time"

// CryptoMarket is one asset's current-round pair of binary tokens.
type CryptoMarket struct {
	Asset       string
	UpTokenID   string
	DownTokenID string
	UpPrice     float64
	DownPrice   float64
	ConditionID string
	ExpiresAt   time.Time
}

// Round is derived from the wall clock: a recurring 15-minute window, with
// each asset's current pair of UP/DOWN tokens expiring at the window
// boundary.
type Round struct {
	Slot      int64
	AgeSec    float64
	TimeLeft  float64
	Markets   map[string]CryptoMarket // keyed by asset symbol
}

// SecondsToExpiry returns the time remaining until m.ExpiresAt, relative to now.
func (m CryptoMarket) SecondsToExpiry(now time.Time) float64 {
	return m.ExpiresAt.Sub(now).Seconds()
}
