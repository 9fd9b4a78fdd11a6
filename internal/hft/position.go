package hft

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// PositionManagerConfig carries every exit-rule threshold, with defaults
// matching the strategy spec.
type PositionManagerConfig struct {
	ForceExitSec     float64 // 1
	StopLossPct      float64 // 2
	TakeProfitPct    float64 // 3
	MakerExitsForTPOnly bool

	RatchetConfirmTicks         int     // 4
	RatchetConfirmTolerancePct  float64

	TrailingLatePct float64 // 5: seconds-to-expiry < 60
	TrailingMidPct  float64 // 60 <= secToExpiry < 300
	TrailingWidePct float64 // secToExpiry >= 300

	StaleProfitPct             float64 // 6
	StaleProfitBidUnchangedSec float64

	StagnantProfitPct    float64 // 7
	StagnantDurationSec  float64

	DepthCollapseThresholdPct float64 // 8

	SellCooldownMs int64
	MaxOpenPositions int
}

// DefaultPositionManagerConfig matches the spec's stated default values.
func DefaultPositionManagerConfig() PositionManagerConfig {
	return PositionManagerConfig{
		ForceExitSec:                30,
		StopLossPct:                 12,
		TakeProfitPct:               15,
		MakerExitsForTPOnly:         true,
		RatchetConfirmTicks:         3,
		RatchetConfirmTolerancePct:  0.5,
		TrailingLatePct:             7,
		TrailingMidPct:              10,
		TrailingWidePct:             15,
		StaleProfitPct:              9,
		StaleProfitBidUnchangedSec:  7,
		StagnantProfitPct:           3,
		StagnantDurationSec:         13,
		DepthCollapseThresholdPct:   60,
		SellCooldownMs:              2000,
		MaxOpenPositions:            5,
	}
}

// ExitDecision is one checkExits result: the position, why it should close,
// at what price, and whether the close should use a maker order.
type ExitDecision struct {
	Position  domain.OpenPosition
	Reason    domain.ExitReason
	ExitPrice float64
	UseMaker  bool
}

// BookLookup resolves the current orderbook for a position's token, used by
// checkExits to read best-bid and depth.
type BookLookup func(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)

// PositionManager tracks every open position for one engine instance and
// evaluates the eight priority-ordered exit rules on each tick.
type PositionManager struct {
	cfg   PositionManagerConfig
	log   *slog.Logger
	store domain.PositionStore

	mu         sync.Mutex
	open       map[string]*domain.OpenPosition
	openByAsset map[string]string // asset -> position id, enforces per-asset uniqueness
	closed     []domain.ClosedPosition
	lastSellAt map[string]time.Time
}

// NewPositionManager constructs an empty PositionManager.
func NewPositionManager(cfg PositionManagerConfig, store domain.PositionStore, log *slog.Logger) *PositionManager {
	return &PositionManager{
		cfg:         cfg,
		log:         log,
		store:       store,
		open:        make(map[string]*domain.OpenPosition),
		openByAsset: make(map[string]string),
		lastSellAt:  make(map[string]time.Time),
	}
}

// CanOpen reports whether a new position may be opened for asset/direction:
// no existing position on that asset, and the portfolio is under its cap.
func (m *PositionManager) CanOpen(asset string, direction domain.Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.openByAsset[asset]; exists {
		return false
	}
	return len(m.open) < m.cfg.MaxOpenPositions
}

// Open records a new position.
func (m *PositionManager) Open(p domain.OpenPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.openByAsset[p.Asset]; exists {
		return fmt.Errorf("hft: position already open for asset %s", p.Asset)
	}
	if len(m.open) >= m.cfg.MaxOpenPositions {
		return fmt.Errorf("hft: max open positions (%d) reached", m.cfg.MaxOpenPositions)
	}
	cp := p
	m.open[p.ID] = &cp
	m.openByAsset[p.Asset] = p.ID
	return nil
}

// Tick updates a position's mark price and the exit-rule bookkeeping
// (peak PnL, ratchet lock, stale/stagnant timers, peak bid depth) that
// checkExits relies on. It does not itself decide to exit.
func (m *PositionManager) Tick(positionID string, price float64, book domain.OrderbookSnapshot, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.open[positionID]
	if !ok {
		return fmt.Errorf("hft: no open position %s", positionID)
	}

	p.CurrentPrice = price
	p.UpdatedAt = now

	pnlPct := p.PnLPct(price)
	if pnlPct > p.PeakPnLPct {
		p.PeakPnLPct = pnlPct
		p.RatchetStableTicks = 0
	} else if p.RatchetLockedPct == nil && p.PeakPnLPct > 0 {
		tol := m.cfg.RatchetConfirmTolerancePct
		if p.PeakPnLPct-pnlPct <= tol {
			p.RatchetStableTicks++
			if p.RatchetStableTicks >= m.cfg.RatchetConfirmTicks {
				locked := p.PeakPnLPct
				p.RatchetLockedPct = &locked
			}
		} else {
			p.RatchetStableTicks = 0
		}
	}

	if book.BestBid != p.LastBid {
		p.LastBid = book.BestBid
		p.LastBidAt = now
	}

	if pnlPct >= m.cfg.StagnantProfitPct {
		if p.StagnantSince == nil {
			p.StagnantSince = &now
		}
	} else {
		p.StagnantSince = nil
	}

	if book.BidDepth > p.PeakBidDepth {
		p.PeakBidDepth = book.BidDepth
	}

	return nil
}

// trailingBandPct picks the trailing-stop band for a position's remaining
// time to expiry.
func (m *PositionManager) trailingBandPct(secToExpiry float64) float64 {
	switch {
	case secToExpiry < 60:
		return m.cfg.TrailingLatePct
	case secToExpiry < 300:
		return m.cfg.TrailingMidPct
	default:
		return m.cfg.TrailingWidePct
	}
}

// CheckExits evaluates the eight exit rules, in priority order, against
// every open position and returns at most one decision per position.
func (m *PositionManager) CheckExits(ctx context.Context, now time.Time, getBook BookLookup) ([]ExitDecision, error) {
	m.mu.Lock()
	positions := make([]*domain.OpenPosition, 0, len(m.open))
	for _, p := range m.open {
		positions = append(positions, p)
	}
	m.mu.Unlock()

	var decisions []ExitDecision
	for _, p := range positions {
		book, err := getBook(ctx, p.TokenID)
		if err != nil {
			m.log.Warn("hft: exit check book lookup failed", slog.String("position_id", p.ID), slog.Any("error", err))
			continue
		}
		if d, ok := m.evaluateExit(*p, book, now); ok {
			decisions = append(decisions, d)
		}
	}
	return decisions, nil
}

// evaluateExit runs the eight rules in strict priority order against one
// position, returning the first that fires.
func (m *PositionManager) evaluateExit(p domain.OpenPosition, book domain.OrderbookSnapshot, now time.Time) (ExitDecision, bool) {
	pnlPct := p.PnLPct(book.MidPrice)
	secToExpiry := p.ExpiresAt.Sub(now).Seconds()

	// 1. Force exit.
	if secToExpiry <= m.cfg.ForceExitSec {
		return ExitDecision{p, domain.ExitReasonForceExit, book.BestBid, false}, true
	}

	// 2. Stop loss.
	if pnlPct <= -m.cfg.StopLossPct {
		return ExitDecision{p, domain.ExitReasonStopLoss, book.BestBid, false}, true
	}

	// 3. Take profit.
	if pnlPct >= m.cfg.TakeProfitPct {
		return ExitDecision{p, domain.ExitReasonTakeProfit, book.BestBid, m.cfg.MakerExitsForTPOnly}, true
	}

	// 4. Ratchet.
	if p.RatchetLockedPct != nil {
		band := m.trailingBandPct(secToExpiry)
		if *p.RatchetLockedPct-pnlPct > band {
			return ExitDecision{p, domain.ExitReasonRatchet, book.BestBid, true}, true
		}
	}

	// 5. Trailing stop.
	if p.PeakPnLPct > 0 {
		band := m.trailingBandPct(secToExpiry)
		if p.PeakPnLPct-pnlPct > band {
			return ExitDecision{p, domain.ExitReasonTrailingStop, book.BestBid, true}, true
		}
	}

	// 6. Stale profit.
	if pnlPct >= m.cfg.StaleProfitPct && !p.LastBidAt.IsZero() {
		if now.Sub(p.LastBidAt).Seconds() >= m.cfg.StaleProfitBidUnchangedSec {
			return ExitDecision{p, domain.ExitReasonStaleProfit, book.BestBid, true}, true
		}
	}

	// 7. Stagnant profit.
	if pnlPct >= m.cfg.StagnantProfitPct && p.StagnantSince != nil {
		if now.Sub(*p.StagnantSince).Seconds() >= m.cfg.StagnantDurationSec {
			return ExitDecision{p, domain.ExitReasonStagnantProfit, book.BestBid, true}, true
		}
	}

	// 8. Depth collapse.
	if p.PeakBidDepth > 0 && book.BidDepth < p.PeakBidDepth*(m.cfg.DepthCollapseThresholdPct/100) {
		return ExitDecision{p, domain.ExitReasonDepthCollapse, book.BestBid, true}, true
	}

	return ExitDecision{}, false
}

// InCooldown reports whether asset is still within its sell cooldown window
// after a prior close.
func (m *PositionManager) InCooldown(asset string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastSellAt[asset]
	if !ok {
		return false
	}
	return now.Sub(last) < time.Duration(m.cfg.SellCooldownMs)*time.Millisecond
}

// Close removes a position from the open set, records its closed snapshot,
// persists it, and starts its sell cooldown.
func (m *PositionManager) Close(ctx context.Context, positionID string, exitPrice float64, reason domain.ExitReason, wasMaker bool, now time.Time) (domain.ClosedPosition, error) {
	m.mu.Lock()
	p, ok := m.open[positionID]
	if !ok {
		m.mu.Unlock()
		return domain.ClosedPosition{}, fmt.Errorf("hft: no open position %s", positionID)
	}
	delete(m.open, positionID)
	delete(m.openByAsset, p.Asset)
	m.lastSellAt[p.Asset] = now
	m.mu.Unlock()

	pnlPct := p.PnLPct(exitPrice)
	closed := domain.ClosedPosition{
		OpenPosition:   *p,
		ExitPrice:      exitPrice,
		RealizedPnLPct: pnlPct,
		RealizedPnL:    pnlPct / 100 * p.EntryPrice * p.Shares,
		ExitReason:     reason,
		WasMakerExit:   wasMaker,
		ClosedAt:       now,
	}

	if m.store != nil {
		if err := m.store.Insert(ctx, closed); err != nil {
			m.log.Error("hft: persist closed position", slog.String("position_id", positionID), slog.Any("error", err))
		}
	}

	m.mu.Lock()
	m.closed = append(m.closed, closed)
	m.mu.Unlock()

	m.log.Info("hft: position closed",
		slog.String("position_id", positionID),
		slog.String("asset", p.Asset),
		slog.String("reason", string(reason)),
		slog.Float64("pnl_pct", pnlPct),
	)

	return closed, nil
}

// GetOpen returns a snapshot of every open position.
func (m *PositionManager) GetOpen() []domain.OpenPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OpenPosition, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, *p)
	}
	return out
}

// GetClosed returns every position closed this process lifetime, oldest first.
func (m *PositionManager) GetClosed() []domain.ClosedPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ClosedPosition, len(m.closed))
	copy(out, m.closed)
	return out
}

// Stats summarizes closed-position performance this process lifetime.
type Stats struct {
	ClosedCount int
	WinCount    int
	TotalPnL    float64
	AvgPnLPct   float64
}

// GetStats computes aggregate performance over every closed position.
func (m *PositionManager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	s.ClosedCount = len(m.closed)
	var sumPct float64
	for _, c := range m.closed {
		s.TotalPnL += c.RealizedPnL
		sumPct += c.RealizedPnLPct
		if c.RealizedPnL > 0 {
			s.WinCount++
		}
	}
	if s.ClosedCount > 0 {
		s.AvgPnLPct = sumPct / float64(s.ClosedCount)
	}
	return s
}
