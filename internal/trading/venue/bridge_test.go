package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BridgeVenueTestSuite struct {
	suite.Suite
	server   *httptest.Server
	venue    *BridgeVenue
	lastSend types.VenueRequest
	magicQs  []string
}

func TestBridgeVenueSuite(t *testing.T) {
	suite.Run(t, new(BridgeVenueTestSuite))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (suite *BridgeVenueTestSuite) SetupTest() {
	suite.magicQs = nil
	router := mux.NewRouter()

	router.HandleFunc("/positions", func(w http.ResponseWriter, r *http.Request) {
		suite.magicQs = append(suite.magicQs, r.URL.Query().Get("magic"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"ticket": 11, "symbol": "EURUSD", "type": 1, "volume": 0.2, "price_open": 1.1, "sl": 1.11, "tp": 1.09, "magic": 100001, "comment": "short", "time": 1700000000},
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/positions/{ticket}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["ticket"] != "11" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "position not found"})

			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ticket": 11, "symbol": "EURUSD", "type": 0, "volume": 0.2})
	}).Methods(http.MethodGet)

	router.HandleFunc("/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"ticket": 21, "symbol": "EURUSD", "type": 2, "volume_current": 0.1, "price_open": 1.09, "magic": 100001, "time_setup": 1700000000},
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/orders/{ticket}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/symbols/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["symbol"] != "EURUSD" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "symbol not found"})

			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name": "EURUSD", "point": 0.00001, "digits": 5, "spread": 2, "trade_stops_level": 5,
			"volume_min": 0.01, "volume_max": 100, "volume_step": 0.01,
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/symbols/{symbol}/tick", func(w http.ResponseWriter, r *http.Request) {
		switch mux.Vars(r)["symbol"] {
		case "EURUSD":
			writeJSON(w, http.StatusOK, map[string]any{"bid": 1.105, "ask": 1.1052, "time": 1700000000})
		case "BROKEN":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "terminal not connected"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no tick"})
		}
	}).Methods(http.MethodGet)

	router.HandleFunc("/order_send", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&suite.lastSend)
		writeJSON(w, http.StatusOK, map[string]any{
			"retcode": 10009, "deal": 501, "order": 502, "volume": 0.1, "price": 1.1052, "bid": 1.105, "ask": 1.1052,
			"comment": "Request executed", "request_id": 7,
		})
	}).Methods(http.MethodPost)

	suite.server = httptest.NewServer(router)
	suite.venue = NewBridgeVenue(suite.server.URL+"/", 2*time.Second, logger.NewNop())
}

func (suite *BridgeVenueTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *BridgeVenueTestSuite) TestPositions() {
	positions, err := suite.venue.Positions(context.Background(), 100001)
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal(types.SideSell, positions[0].Side)
	suite.Equal(1.09, positions[0].TakeProfit)
	suite.Equal(int64(1700000000), positions[0].OpenTime.Unix())

	_, err = suite.venue.Positions(context.Background(), AllMagic)
	suite.Require().NoError(err)
	suite.Equal([]string{"100001", ""}, suite.magicQs)
}

func (suite *BridgeVenueTestSuite) TestPositionByTicket() {
	pos, err := suite.venue.PositionByTicket(context.Background(), 11)
	suite.Require().NoError(err)
	suite.Equal(types.SideBuy, pos.Side)

	_, err = suite.venue.PositionByTicket(context.Background(), 12)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}

func (suite *BridgeVenueTestSuite) TestPendingOrders() {
	orders, err := suite.venue.PendingOrders(context.Background(), 100001)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.Equal(types.OrderTypeBuyLimit, orders[0].OrderType)
	suite.Equal(0.1, orders[0].Volume)

	_, err = suite.venue.PendingOrderByTicket(context.Background(), 21)
	suite.True(errors.HasCode(err, errors.ErrCodePendingOrderNotFound))
}

func (suite *BridgeVenueTestSuite) TestQuoteAndSymbol() {
	quote, err := suite.venue.Quote(context.Background(), "EURUSD")
	suite.Require().NoError(err)
	suite.Equal(1.105, quote.Bid)
	suite.Equal(1.1052, quote.Ask)

	_, err = suite.venue.Quote(context.Background(), "XAUUSD")
	suite.True(errors.HasCode(err, errors.ErrCodeQuoteUnavailable))

	_, err = suite.venue.Quote(context.Background(), "BROKEN")
	suite.True(errors.HasCode(err, errors.ErrCodeVenueUnavailable))
	suite.ErrorContains(err, "terminal not connected")

	info, err := suite.venue.SymbolInfo(context.Background(), "EURUSD")
	suite.Require().NoError(err)
	suite.Equal(5, info.StopsLevelPoints)
	suite.Equal(int32(5), info.Digits)

	_, err = suite.venue.SymbolInfo(context.Background(), "XAUUSD")
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolInfoUnavailable))
}

func (suite *BridgeVenueTestSuite) TestSend() {
	req := types.VenueRequest{ //nolint:exhaustruct
		Action:      types.TradeActionDeal,
		Symbol:      "EURUSD",
		Volume:      0.1,
		Type:        types.OrderTypeBuy,
		Price:       1.1052,
		StopLoss:    1.1045,
		TakeProfit:  1.1059,
		Deviation:   10,
		Magic:       100001,
		Comment:     "breakout",
		TypeFilling: types.FillPolicyIOC,
	}

	result, err := suite.venue.Send(context.Background(), req)
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeDone, result.RetCode)
	suite.Equal(uint64(502), result.Order)
	suite.Equal(uint32(7), result.RequestID)
	suite.Equal(req, suite.lastSend)
}

func (suite *BridgeVenueTestSuite) TestUnreachable() {
	suite.server.Close()
	_, err := suite.venue.Positions(context.Background(), 1)
	suite.True(errors.HasCode(err, errors.ErrCodeVenueUnavailable))
}
