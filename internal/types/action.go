package types

import (
	"strings"

	"github.com/moznion/go-optional"
)

// EntryType selects how an OPEN action enters the market.
type EntryType string

const (
	EntryMarket EntryType = "MARKET"
	EntryLimit  EntryType = "LIMIT"
	EntryStop   EntryType = "STOP"
)

// OrderType returns the venue order type for entering on side with this entry type.
func (e EntryType) OrderType(side Side) OrderType {
	switch e {
	case EntryLimit:
		if side == SideBuy {
			return OrderTypeBuyLimit
		}

		return OrderTypeSellLimit
	case EntryStop:
		if side == SideBuy {
			return OrderTypeBuyStop
		}

		return OrderTypeSellStop
	default:
		return side.MarketOrderType()
	}
}

// Action is one instruction of a trade plan. Each kind carries only its own fields.
type Action interface {
	// Label is the action name reported in the outcome.
	Label() string
	// Instrument is the symbol the action refers to.
	Instrument() string
}

// OpenAction opens a new position or places a pending order. Distances are in points.
type OpenAction struct {
	Symbol            string
	Side              Side
	Entry             EntryType
	Volume            float64
	EntryOffsetPoints float64
	StopLossPoints    float64
	TakeProfitPoints  float64
	Comment           string
	Reasoning         string
}

func (a OpenAction) Label() string      { return string(a.Side) }
func (a OpenAction) Instrument() string { return a.Symbol }

// CloseAction closes an open position at market.
type CloseAction struct {
	Symbol    string
	Ticket    uint64
	Comment   string
	Reasoning string
}

func (a CloseAction) Label() string      { return "CLOSE" }
func (a CloseAction) Instrument() string { return a.Symbol }

// CancelAction removes a pending order.
type CancelAction struct {
	Symbol    string
	Ticket    uint64
	Comment   string
	Reasoning string
}

func (a CancelAction) Label() string      { return "CANCEL" }
func (a CancelAction) Instrument() string { return a.Symbol }

// ModifyAction moves the stop and/or target of an open position.
// Distances are measured in points from the position's open price.
type ModifyAction struct {
	Symbol           string
	Ticket           uint64
	StopLossPoints   optional.Option[float64]
	TakeProfitPoints optional.Option[float64]
	Comment          string
	Reasoning        string
}

func (a ModifyAction) Label() string      { return "MODIFY" }
func (a ModifyAction) Instrument() string { return a.Symbol }

// SkipAction is a placeholder such as HOLD or WAIT. It never reaches the venue.
type SkipAction struct {
	Symbol string
	Marker string
}

func (a SkipAction) Label() string      { return a.Marker }
func (a SkipAction) Instrument() string { return a.Symbol }

// InvalidAction is a recommendation that failed boundary validation.
type InvalidAction struct {
	Symbol string
	Name   string
	Reason string
}

func (a InvalidAction) Label() string      { return a.Name }
func (a InvalidAction) Instrument() string { return a.Symbol }

// SkipMarkers are the placeholder action names that are recorded but never executed.
var SkipMarkers = []string{"HOLD", "NO_TRADE", "NO_NEW_POSITIONS", "WAIT", "SKIP"}

// IsSkipMarker reports whether name is a placeholder action.
func IsSkipMarker(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, marker := range SkipMarkers {
		if marker == name {
			return true
		}
	}

	return false
}

// JoinRationale builds the text persisted for a ticket: "comment | reasoning".
func JoinRationale(comment, reasoning string) string {
	comment = strings.TrimSpace(comment)
	reasoning = strings.TrimSpace(reasoning)

	switch {
	case comment == "":
		return reasoning
	case reasoning == "":
		return comment
	default:
		return comment + " | " + reasoning
	}
}
