package domain

import "time"

// Direction is the side of a binary market a position or signal targets.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// OrderMode selects the execution protocol used to fill a TradeSignal.
type OrderMode string

const (
	OrderModeMaker         OrderMode = "maker"
	OrderModeTaker         OrderMode = "taker"
	OrderModeFOK           OrderMode = "fok"
	OrderModeMakerThenTaker OrderMode = "maker_then_taker"
)

// TradeSignal is an immutable decision produced by a strategy evaluator.
type TradeSignal struct {
	Strategy    string
	Asset       string
	Direction   Direction
	TokenID     string
	ConditionID string
	Price       float64
	Confidence  float64 // in [0,1]
	Reason      string
	Mode        OrderMode
	Features    map[string]any
	Timestamp   time.Time
}
