package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

const seedYAML = `symbols:
  - symbol: EURUSD
    point: 0.00001
    digits: 5
    spread_points: 2
    stops_level_points: 5
    volume_min: 0.01
    volume_max: 100
    volume_step: 0.01
quotes:
  - symbol: EURUSD
    bid: 1.10500
    ask: 1.10502
`

const planText = "Here is the plan:\n```json\n" + `{
  "analysis": "EUR bid after CPI",
  "recommendations": [
    {"symbol": "EURUSD", "action": "buy", "order_type": "MARKET", "volume": 0.1,
     "stop_loss_points": 30, "take_profit_points": 60,
     "comment": "cpi", "reasoning": "soft US CPI print"},
    {"symbol": "EURUSD", "action": "HOLD"}
  ],
  "next_call_interval": 300
}` + "\n```\n"

type AppTestSuite struct {
	suite.Suite
	dir        string
	configPath string
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (s *AppTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	seedPath := filepath.Join(s.dir, "seed.yaml")
	s.Require().NoError(os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	configYAML := fmt.Sprintf(`annotations:
  driver: duckdb
  path: %s
venue:
  provider: paper
  paper_seed: %s
log:
  level: error
`, filepath.Join(s.dir, "annotations.duckdb"), seedPath)

	s.configPath = filepath.Join(s.dir, "autotrade.yaml")
	s.Require().NoError(os.WriteFile(s.configPath, []byte(configYAML), 0o600))
}

func (s *AppTestSuite) run(args ...string) (string, error) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(context.Background(), append([]string{"autotrader", "--config", s.configPath}, args...))

	return out.String(), err
}

// ============================================================================
// Commands
// ============================================================================

func (s *AppTestSuite) TestSchema() {
	out, err := s.run("schema")
	s.Require().NoError(err)
	s.Contains(out, "recommendations")
	s.Contains(out, "next_call_interval")
}

func (s *AppTestSuite) TestVenues() {
	out, err := s.run("venues")
	s.Require().NoError(err)

	var infos []map[string]any
	s.Require().NoError(yaml.Unmarshal([]byte(out), &infos))
	s.Len(infos, 4)
	s.Equal("binance-live", infos[0]["name"])
}

func (s *AppTestSuite) TestExecuteStoresRationale() {
	planPath := filepath.Join(s.dir, "plan.md")
	s.Require().NoError(os.WriteFile(planPath, []byte(planText), 0o600))

	out, err := s.run("execute", "--plan", planPath)
	s.Require().NoError(err)

	var report types.PlanReport
	s.Require().NoError(yaml.Unmarshal([]byte(out), &report))
	s.Equal(2, report.Total)
	s.Equal(2, report.Succeeded)
	s.Equal("EUR bid after CPI", report.Analysis)
	s.Equal("BUY", report.Outcomes[0].Action)

	ticket := report.Outcomes[0].Ticket
	s.NotZero(ticket)

	out, err = s.run("annotation", "get", fmt.Sprint(ticket))
	s.Require().NoError(err)
	s.Contains(out, "cpi | soft US CPI print")
}

func (s *AppTestSuite) TestExecuteRejectsUnparseablePlan() {
	planPath := filepath.Join(s.dir, "plan.txt")
	s.Require().NoError(os.WriteFile(planPath, []byte("no trades today"), 0o600))

	_, err := s.run("execute", "--plan", planPath)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeAdvisoryParseFailed))
}

func (s *AppTestSuite) TestExecuteRequiresPlanFlag() {
	_, err := s.run("execute")
	s.Require().Error(err)
}

func (s *AppTestSuite) TestPositionsListsSeededVenue() {
	out, err := s.run("positions")
	s.Require().NoError(err)

	var listing struct {
		Positions     []types.Position     `yaml:"positions"`
		PendingOrders []types.PendingOrder `yaml:"pending_orders"`
	}
	s.Require().NoError(yaml.Unmarshal([]byte(out), &listing))
	s.Empty(listing.Positions)
	s.Empty(listing.PendingOrders)
}

func (s *AppTestSuite) TestAnnotationPutThenGet() {
	_, err := s.run("annotation", "put", "4242", "manual hedge before NFP")
	s.Require().NoError(err)

	out, err := s.run("annotation", "get", "4242")
	s.Require().NoError(err)

	var record types.AnnotationRecord
	s.Require().NoError(yaml.Unmarshal([]byte(out), &record))
	s.Equal(uint64(4242), record.Ticket)
	s.Equal("manual hedge before NFP", record.Text)
}

func (s *AppTestSuite) TestAnnotationArguments() {
	_, err := s.run("annotation", "get")
	s.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	_, err = s.run("annotation", "get", "abc")
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = s.run("annotation", "get", "99")
	s.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (s *AppTestSuite) TestRunRequiresAdvisoryModel() {
	_, err := s.run("run")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
