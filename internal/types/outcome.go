package types

// ActionOutcome is the result of executing one plan action.
type ActionOutcome struct {
	Symbol  string `yaml:"symbol" json:"symbol"`
	Action  string `yaml:"action" json:"action"`
	Success bool   `yaml:"success" json:"success"`
	Reason  string `yaml:"reason" json:"reason"`
	// Ticket is the venue ticket produced or acted on, 0 when none.
	Ticket uint64  `yaml:"ticket,omitempty" json:"ticket,omitempty"`
	Volume float64 `yaml:"volume,omitempty" json:"volume,omitempty"`
	Price  float64 `yaml:"price,omitempty" json:"price,omitempty"`
}

// NewFailure builds a failed outcome for action.
func NewFailure(action Action, reason string) ActionOutcome {
	return ActionOutcome{
		Symbol:  action.Instrument(),
		Action:  action.Label(),
		Success: false,
		Reason:  reason,
		Ticket:  0,
		Volume:  0,
		Price:   0,
	}
}
