// Package advisory talks to the external advisory service and turns its
// recommendations into trade plan actions.
//
// The service's reply is untrusted input: every recommendation is validated on
// its own, and one that fails becomes an InvalidAction instead of aborting the plan.
package advisory

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
)

// Response is the structured reply of the advisory service.
type Response struct {
	Analysis        string           `json:"analysis,omitempty" jsonschema:"title=Analysis,description=Free-form market analysis"`
	Recommendations []Recommendation `json:"recommendations" jsonschema:"title=Recommendations,description=Actions to execute in order"`
	// NextCallInterval is in seconds.
	NextCallInterval *float64 `json:"next_call_interval,omitempty" jsonschema:"title=Next Call Interval,description=Seconds until the service should be asked again,minimum=0"`
	IntervalReason   string   `json:"interval_reason,omitempty" jsonschema:"title=Interval Reason"`
}

// Recommendation is a single recommended action. Which fields matter depends on Action.
type Recommendation struct {
	Symbol            string   `json:"symbol" jsonschema:"title=Symbol,description=Instrument the action applies to"`
	Action            string   `json:"action" jsonschema:"title=Action,enum=BUY,enum=SELL,enum=CLOSE,enum=CANCEL,enum=MODIFY,enum=HOLD,enum=NO_TRADE,enum=NO_NEW_POSITIONS,enum=WAIT,enum=SKIP"`
	OrderType         string   `json:"order_type,omitempty" jsonschema:"title=Order Type,enum=MARKET,enum=LIMIT,enum=STOP"`
	Volume            float64  `json:"volume,omitempty" jsonschema:"title=Volume,description=Lots; required for BUY and SELL,minimum=0"`
	EntryOffsetPoints float64  `json:"entry_offset_points,omitempty" jsonschema:"title=Entry Offset Points,description=Signed distance from the market for LIMIT and STOP entries"`
	StopLossPoints    *float64 `json:"stop_loss_points,omitempty" jsonschema:"title=Stop Loss Points,minimum=0"`
	TakeProfitPoints  *float64 `json:"take_profit_points,omitempty" jsonschema:"title=Take Profit Points,minimum=0"`
	Comment           string   `json:"comment,omitempty" jsonschema:"title=Comment"`
	Reasoning         string   `json:"reasoning,omitempty" jsonschema:"title=Reasoning"`
	OrderID           TicketID `json:"order_id,omitempty" jsonschema:"title=Order ID,description=Ticket of the position or pending order; required for CLOSE CANCEL and MODIFY"`
}

// TicketID accepts a ticket written as a JSON number or a numeric string.
// Anything else decodes as 0 so the recommendation fails its own validation
// without rejecting the rest of the response.
type TicketID uint64

func (t *TicketID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0

		return nil
	}

	text := strings.TrimSpace(strings.Trim(string(data), `"`))
	if text == "" {
		*t = 0

		return nil
	}

	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f < 1 || f != math.Trunc(f) || f >= math.MaxUint64 {
			*t = 0

			return nil
		}

		value = uint64(f)
	}

	*t = TicketID(value)

	return nil
}

func (t TicketID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(t), 10)), nil
}

// JSONSchema describes the accepted forms of an order id.
func (TicketID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{ //nolint:exhaustruct
		Title:       "Order ID",
		Description: "Ticket of the position or pending order; required for CLOSE CANCEL and MODIFY",
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("1")}, //nolint:exhaustruct
			{Type: "string", Pattern: "^[0-9]+$"},        //nolint:exhaustruct
		},
	}
}

var maxIntervalSeconds = time.Duration(math.MaxInt64).Seconds()

// NextInterval returns the suggested delay before the next call, if any.
// Values too large for a time.Duration saturate at the maximum duration.
func (r Response) NextInterval() optional.Option[time.Duration] {
	if r.NextCallInterval == nil || math.IsNaN(*r.NextCallInterval) || *r.NextCallInterval <= 0 {
		return optional.None[time.Duration]()
	}

	if *r.NextCallInterval >= maxIntervalSeconds {
		return optional.Some(time.Duration(math.MaxInt64))
	}

	return optional.Some(time.Duration(*r.NextCallInterval * float64(time.Second)))
}
