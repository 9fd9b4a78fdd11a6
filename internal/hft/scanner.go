package hft

import (
	"context"
	"sync"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

const slotDuration = 15 * time.Minute

// RoundMarketSource resolves the current-round UP/DOWN token pair for one
// asset. Concrete venue lookups (which market id corresponds to "the next
// 15-minute BTC round") are a venue-specific concern and live outside this
// package, the same way individual adapter wire protocols live outside
// internal/feed.
type RoundMarketSource interface {
	CurrentRoundMarket(ctx context.Context, asset string, slotStart, slotEnd time.Time) (domain.CryptoMarket, error)
}

// ScannerConfig bounds when a round is considered tradeable.
type ScannerConfig struct {
	MinRoundAgeSec  float64
	MinTimeLeftSec  float64
}

// DefaultScannerConfig matches the spec's default canTrade() bounds.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{MinRoundAgeSec: 5, MinTimeLeftSec: 10}
}

// Scanner discovers the current 15-minute round's per-asset binary markets.
type Scanner struct {
	assets []string
	source RoundMarketSource
	cfg    ScannerConfig

	mu    sync.Mutex
	round domain.Round
}

// NewScanner constructs a Scanner over the given assets.
func NewScanner(assets []string, source RoundMarketSource, cfg ScannerConfig) *Scanner {
	return &Scanner{assets: assets, source: source, cfg: cfg}
}

// slotBounds returns the current 15-minute window containing t.
func slotBounds(t time.Time) (start, end time.Time, slot int64) {
	unix := t.Unix()
	slotSec := int64(slotDuration.Seconds())
	slotIdx := unix / slotSec
	startUnix := slotIdx * slotSec
	return time.Unix(startUnix, 0).UTC(), time.Unix(startUnix+slotSec, 0).UTC(), slotIdx
}

// Refresh re-derives the current round: its slot, age, time-left, and each
// configured asset's UP/DOWN market pair.
func (s *Scanner) Refresh(ctx context.Context, now time.Time) domain.Round {
	start, end, slot := slotBounds(now)
	round := domain.Round{
		Slot:     slot,
		AgeSec:   now.Sub(start).Seconds(),
		TimeLeft: end.Sub(now).Seconds(),
		Markets:  make(map[string]domain.CryptoMarket, len(s.assets)),
	}

	for _, asset := range s.assets {
		m, err := s.source.CurrentRoundMarket(ctx, asset, start, end)
		if err != nil {
			continue
		}
		round.Markets[asset] = m
	}

	s.mu.Lock()
	s.round = round
	s.mu.Unlock()
	return round
}

// Current returns the most recently refreshed round.
func (s *Scanner) Current() domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// CanTrade reports whether the round is old enough and has enough time left
// to be worth evaluating strategies against.
func (s *Scanner) CanTrade(round domain.Round) bool {
	return round.AgeSec >= s.cfg.MinRoundAgeSec && round.TimeLeft >= s.cfg.MinTimeLeftSec
}
