package domain

import "time"

// ExitReason names the rule that closed a position.
type ExitReason string

const (
	ExitReasonTakeProfit     ExitReason = "take_profit"
	ExitReasonStopLoss       ExitReason = "stop_loss"
	ExitReasonRatchet        ExitReason = "ratchet"
	ExitReasonTrailingStop   ExitReason = "trailing_stop"
	ExitReasonStaleProfit    ExitReason = "stale_profit"
	ExitReasonStagnantProfit ExitReason = "stagnant_profit"
	ExitReasonDepthCollapse  ExitReason = "depth_collapse"
	ExitReasonForceExit      ExitReason = "force_exit"
)

// OpenPosition is a live position held by the HFT engine.
type OpenPosition struct {
	ID          string
	Strategy    string
	Asset       string
	Direction   Direction
	TokenID     string
	ConditionID string
	EntryPrice  float64
	Shares      float64
	CurrentPrice float64
	ExpiresAt   time.Time
	OpenedAt    time.Time
	UpdatedAt   time.Time

	// Exit-rule bookkeeping (see hft.PositionManager.checkExits).
	PeakPnLPct         float64
	RatchetLockedPct   *float64
	RatchetStableTicks int
	LastBid            float64
	LastBidAt          time.Time
	StagnantSince      *time.Time
	PeakBidDepth       float64
	WasMakerEntry      bool
}

// ClosedPosition is an OpenPosition snapshot plus the outcome of its exit.
type ClosedPosition struct {
	OpenPosition
	ExitPrice    float64
	RealizedPnL  float64
	RealizedPnLPct float64
	ExitReason   ExitReason
	WasMakerExit bool
	ClosedAt     time.Time
}

// PnLPct returns the unrealized PnL percentage of an open position at the
// given mark price: positive for UP positions that rose, negative for UP
// positions that fell, and the mirror for DOWN positions (a DOWN position's
// "price" is still quoted on [0,1], so its PnL moves opposite to price).
func (p OpenPosition) PnLPct(markPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	switch p.Direction {
	case DirectionDown:
		return (p.EntryPrice - markPrice) / p.EntryPrice * 100
	default:
		return (markPrice - p.EntryPrice) / p.EntryPrice * 100
	}
}
