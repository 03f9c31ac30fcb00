package model

// Bias is the rule strategy's per-cycle classification.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// Verdict is the deterministic rule signal for one cycle.
type Verdict struct {
	Bias      Bias
	Rationale string
}

// Action is the final recommendation vocabulary. The same tokens are the
// action grammar the advisory service is asked to reply with.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Actionable reports whether the action should reach an operator.
func (a Action) Actionable() bool {
	return a == ActionBuy || a == ActionSell
}

// MapBias translates a rule bias onto the action vocabulary. Used as the
// fallback when the advisory reply is missing or unparseable.
func MapBias(b Bias) Action {
	switch b {
	case BiasBullish:
		return ActionBuy
	case BiasBearish:
		return ActionSell
	default:
		return ActionHold
	}
}

// Decision is the fused, per-cycle recommendation. It is constructed with
// every field populated (hold at the live price, zero sizes) and only then
// augmented, so a partially built decision never exists.
type Decision struct {
	Code         string
	Action       Action
	Price        float64
	SizeFraction float64 // suggested fraction of the position, 0.0-1.0
	StopLoss     float64 // 0 means not suggested
	Target       float64 // 0 means not suggested
	Rationale    string
	Degraded     bool // advisory unavailable, rule verdict only
	Disagreement bool // advisory and rule verdict pointed different ways
}

// NewHoldDecision returns the default decision every cycle starts from.
func NewHoldDecision(code string, price float64) Decision {
	return Decision{
		Code:   code,
		Action: ActionHold,
		Price:  price,
	}
}
