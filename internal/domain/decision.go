package domain

// Action is the recommendation returned for a listing.
type Action string

const (
	ActionBuy       Action = "buy"
	ActionNegotiate Action = "negotiate"
	ActionLookInto  Action = "look_into"
	ActionDont      Action = "dont"
	ActionDontDont  Action = "dont_dont"
)

// Actions lists every valid Action in prompt order.
var Actions = []Action{ActionBuy, ActionNegotiate, ActionLookInto, ActionDont, ActionDontDont}

// MaxReasonLength is the upper bound on Decision.Reason, counted in runes.
const MaxReasonLength = 200

// Decision is a validated purchase recommendation.
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
