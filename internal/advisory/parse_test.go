package advisory

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ParseTestSuite struct {
	suite.Suite
}

func TestParseSuite(t *testing.T) {
	suite.Run(t, new(ParseTestSuite))
}

const planJSON = `{
  "analysis": "EURUSD trending up",
  "recommendations": [
    {"symbol": "EURUSD", "action": "BUY", "order_type": "MARKET", "volume": 0.01,
     "entry_offset_points": 0, "stop_loss_points": 20, "take_profit_points": 40,
     "comment": "trend follow", "reasoning": "MACD cross"},
    {"symbol": "XAUUSD", "action": "close", "order_id": "123456", "reasoning": "target reached"},
    {"symbol": "GBPUSD", "action": "HOLD"}
  ],
  "next_call_interval": 300,
  "interval_reason": "confirm the trend in five minutes"
}`

// ============================================================================
// Extraction
// ============================================================================

func (s *ParseTestSuite) TestExtractionForms() {
	cases := []struct {
		name    string
		content string
	}{
		{"bare", planJSON},
		{"fenced", "Here is my plan:\n```json\n" + planJSON + "\n```\nGood luck."},
		{"fenced without language", "```\n" + planJSON + "\n```"},
		{"prose around braces", "Analysis done. " + planJSON + " End of answer."},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, err := Parse(tc.content)
			s.Require().NoError(err)
			s.Len(resp.Recommendations, 3)
			s.Equal("EURUSD trending up", resp.Analysis)
			s.Equal(TicketID(123456), resp.Recommendations[1].OrderID)
			s.Equal("confirm the trend in five minutes", resp.IntervalReason)
		})
	}
}

func (s *ParseTestSuite) TestParseFailures() {
	_, err := Parse("   ")
	s.True(errors.HasCode(err, errors.ErrCodeAdvisoryParseFailed))

	_, err = Parse("I cannot decide right now.")
	s.True(errors.HasCode(err, errors.ErrCodeAdvisoryParseFailed))

	_, err = Parse(`{"recommendations": [ {"symbol": "EURUSD", `)
	s.True(errors.HasCode(err, errors.ErrCodeAdvisoryParseFailed))

	_, err = Parse(`{"analysis": "nothing to do"}`)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidAdvisoryResponse))
}

func (s *ParseTestSuite) TestEmptyRecommendationList() {
	resp, err := Parse(`{"recommendations": []}`)
	s.Require().NoError(err)
	s.Empty(resp.Actions())
	s.True(resp.NextInterval().IsNone())
}

func (s *ParseTestSuite) TestTicketForms() {
	cases := []struct {
		raw  string
		want TicketID
	}{
		{`123`, 123},
		{`"456"`, 456},
		{`" 789 "`, 789},
		{`1.2e3`, 1200},
		{`null`, 0},
		{`""`, 0},
		{`"abc"`, 0},
		{`-5`, 0},
		{`12.5`, 0},
	}

	for _, tc := range cases {
		var rec Recommendation
		s.Require().NoError(json.Unmarshal([]byte(`{"order_id": `+tc.raw+`}`), &rec), tc.raw)
		s.Equal(tc.want, rec.OrderID, tc.raw)
	}
}

func (s *ParseTestSuite) TestNextInterval() {
	resp, err := Parse(planJSON)
	s.Require().NoError(err)

	interval := resp.NextInterval()
	s.True(interval.IsSome())
	s.Equal(5*time.Minute, interval.Unwrap())

	zero := 0.0
	resp.NextCallInterval = &zero
	s.True(resp.NextInterval().IsNone())

	huge := 1e12
	resp.NextCallInterval = &huge
	s.Equal(time.Duration(math.MaxInt64), resp.NextInterval().Unwrap())

	nan := math.NaN()
	resp.NextCallInterval = &nan
	s.True(resp.NextInterval().IsNone())
}

// ============================================================================
// Conversion to actions
// ============================================================================

func (s *ParseTestSuite) TestActions() {
	resp, err := Parse(planJSON)
	s.Require().NoError(err)

	actions := resp.Actions()
	s.Require().Len(actions, 3)

	open, ok := actions[0].(types.OpenAction)
	s.Require().True(ok)
	s.Equal(types.SideBuy, open.Side)
	s.Equal(types.EntryMarket, open.Entry)
	s.Equal(0.01, open.Volume)
	s.Equal(20.0, open.StopLossPoints)
	s.Equal(40.0, open.TakeProfitPoints)
	s.Equal("trend follow", open.Comment)
	s.Equal("MACD cross", open.Reasoning)

	closeAction, ok := actions[1].(types.CloseAction)
	s.Require().True(ok)
	s.Equal(uint64(123456), closeAction.Ticket)
	s.Equal("XAUUSD", closeAction.Symbol)

	skip, ok := actions[2].(types.SkipAction)
	s.Require().True(ok)
	s.Equal("HOLD", skip.Marker)
}

func (s *ParseTestSuite) TestOpenDefaultsAndValidation() {
	sl := 15.0

	action := Recommendation{Symbol: "EURUSD", Action: "sell", Volume: 0.2, StopLossPoints: &sl}.ToAction() //nolint:exhaustruct
	open, ok := action.(types.OpenAction)
	s.Require().True(ok)
	s.Equal(types.SideSell, open.Side)
	s.Equal(types.EntryMarket, open.Entry)
	s.Equal(15.0, open.StopLossPoints)
	s.Zero(open.TakeProfitPoints)

	limit := Recommendation{Symbol: "EURUSD", Action: "BUY", OrderType: "limit", Volume: 0.1, EntryOffsetPoints: -30}.ToAction() //nolint:exhaustruct
	s.Equal(types.EntryLimit, limit.(types.OpenAction).Entry)
	s.Equal(-30.0, limit.(types.OpenAction).EntryOffsetPoints)

	negative := -3.0
	cases := []struct {
		name   string
		rec    Recommendation
		reason string
	}{
		{"missing volume", Recommendation{Symbol: "EURUSD", Action: "BUY"}, "volume must be > 0"},                                       //nolint:exhaustruct
		{"missing symbol", Recommendation{Action: "BUY", Volume: 0.1}, "symbol is required"},                                           //nolint:exhaustruct
		{"bad order type", Recommendation{Symbol: "EURUSD", Action: "BUY", Volume: 0.1, OrderType: "ICEBERG"}, "order_type must be one of"}, //nolint:exhaustruct
		{"negative stop", Recommendation{Symbol: "EURUSD", Action: "BUY", Volume: 0.1, StopLossPoints: &negative}, "stop_loss_points must be >= 0"}, //nolint:exhaustruct
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			invalid, ok := tc.rec.ToAction().(types.InvalidAction)
			s.Require().True(ok)
			s.Equal("BUY", invalid.Name)
			s.Contains(invalid.Reason, tc.reason)
		})
	}
}

func (s *ParseTestSuite) TestTicketActions() {
	cancel := Recommendation{Symbol: "EURUSD", Action: "CANCEL", OrderID: 77}.ToAction() //nolint:exhaustruct
	s.Equal(types.CancelAction{Symbol: "EURUSD", Ticket: 77, Comment: "", Reasoning: ""}, cancel)

	missing, ok := Recommendation{Symbol: "EURUSD", Action: "CLOSE"}.ToAction().(types.InvalidAction) //nolint:exhaustruct
	s.Require().True(ok)
	s.Contains(missing.Reason, "order_id is required")

	tp := 120.0
	modify, ok := Recommendation{Symbol: "EURUSD", Action: "MODIFY", OrderID: 88, TakeProfitPoints: &tp}.ToAction().(types.ModifyAction) //nolint:exhaustruct
	s.Require().True(ok)
	s.Equal(uint64(88), modify.Ticket)
	s.True(modify.StopLossPoints.IsNone())
	s.True(modify.TakeProfitPoints.IsSome())
	s.Equal(120.0, modify.TakeProfitPoints.Unwrap())

	_, ok = Recommendation{Symbol: "EURUSD", Action: "MODIFY"}.ToAction().(types.InvalidAction) //nolint:exhaustruct
	s.True(ok)
}

func (s *ParseTestSuite) TestUnknownAndMissingAction() {
	unknown, ok := Recommendation{Symbol: "EURUSD", Action: "HEDGE"}.ToAction().(types.InvalidAction) //nolint:exhaustruct
	s.Require().True(ok)
	s.Equal(`unknown action "HEDGE"`, unknown.Reason)

	empty, ok := Recommendation{Symbol: "EURUSD"}.ToAction().(types.InvalidAction) //nolint:exhaustruct
	s.Require().True(ok)
	s.Equal("recommendation has no action", empty.Reason)

	for _, marker := range types.SkipMarkers {
		_, ok := Recommendation{Symbol: "EURUSD", Action: marker}.ToAction().(types.SkipAction) //nolint:exhaustruct
		s.True(ok, marker)
	}
}

// ============================================================================
// Schema
// ============================================================================

func (s *ParseTestSuite) TestResponseSchema() {
	schema, err := ResponseSchema()
	s.Require().NoError(err)

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	s.Equal("object", decoded["type"])

	properties, ok := decoded["properties"].(map[string]any)
	s.Require().True(ok)
	s.Contains(properties, "recommendations")
	s.Contains(properties, "next_call_interval")
	s.Contains(schema, "entry_offset_points")
	s.Contains(schema, "order_id")
	s.NotContains(schema, "$ref")
}
