package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	apperrors "github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// Hand-written fakes for the Binance service interfaces

type mockBinanceClient struct {
	createOrderService    *mockCreateOrderService
	getAccountService     *mockGetAccountService
	listOpenOrdersService *mockListOpenOrdersService
	cancelOrderService    *mockCancelOrderService
	bookTickersService    *mockBookTickersService
	exchangeInfoService   *mockExchangeInfoService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService:    &mockCreateOrderService{},
		getAccountService:     &mockGetAccountService{},
		listOpenOrdersService: &mockListOpenOrdersService{},
		cancelOrderService:    &mockCancelOrderService{},
		bookTickersService:    &mockBookTickersService{},
		exchangeInfoService:   &mockExchangeInfoService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	m.createOrderService.reset()

	return m.createOrderService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService { return m.getAccountService }

func (m *mockBinanceClient) NewListOpenOrdersService() ListOpenOrdersService {
	return m.listOpenOrdersService
}

func (m *mockBinanceClient) NewCancelOrderService() CancelOrderService { return m.cancelOrderService }

func (m *mockBinanceClient) NewListBookTickersService() ListBookTickersService {
	return m.bookTickersService
}

func (m *mockBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return m.exchangeInfoService
}

type mockCreateOrderService struct {
	symbol, quantity, price, stopPrice, clientID string
	side                                         binance.SideType
	orderType                                    binance.OrderType
	tif                                          binance.TimeInForceType
	response                                     *binance.CreateOrderResponse
	err                                          error
	calls                                        int
}

func (m *mockCreateOrderService) reset() {
	m.symbol, m.quantity, m.price, m.stopPrice, m.clientID = "", "", "", "", ""
	m.side, m.orderType, m.tif = "", "", ""
}

func (m *mockCreateOrderService) Symbol(s string) CreateOrderService { m.symbol = s; return m }
func (m *mockCreateOrderService) Side(s binance.SideType) CreateOrderService {
	m.side = s
	return m
}
func (m *mockCreateOrderService) Type(t binance.OrderType) CreateOrderService {
	m.orderType = t
	return m
}
func (m *mockCreateOrderService) Quantity(q string) CreateOrderService  { m.quantity = q; return m }
func (m *mockCreateOrderService) Price(p string) CreateOrderService     { m.price = p; return m }
func (m *mockCreateOrderService) StopPrice(p string) CreateOrderService { m.stopPrice = p; return m }
func (m *mockCreateOrderService) TimeInForce(t binance.TimeInForceType) CreateOrderService {
	m.tif = t
	return m
}
func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientID = id
	return m
}
func (m *mockCreateOrderService) Do(context.Context) (*binance.CreateOrderResponse, error) {
	m.calls++
	return m.response, m.err
}

type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(context.Context) (*binance.Account, error) {
	return m.account, m.err
}

type mockListOpenOrdersService struct {
	orders []*binance.Order
	err    error
}

func (m *mockListOpenOrdersService) Do(context.Context) ([]*binance.Order, error) {
	return m.orders, m.err
}

type mockCancelOrderService struct {
	symbol  string
	orderID int64
	err     error
}

func (m *mockCancelOrderService) Symbol(s string) CancelOrderService { m.symbol = s; return m }
func (m *mockCancelOrderService) OrderID(id int64) CancelOrderService {
	m.orderID = id
	return m
}
func (m *mockCancelOrderService) Do(context.Context) (*binance.CancelOrderResponse, error) {
	return &binance.CancelOrderResponse{}, m.err //nolint:exhaustruct
}

type mockBookTickersService struct {
	tickers []*binance.BookTicker
	err     error
}

func (m *mockBookTickersService) Symbol(string) ListBookTickersService { return m }
func (m *mockBookTickersService) Do(context.Context) ([]*binance.BookTicker, error) {
	return m.tickers, m.err
}

type mockExchangeInfoService struct {
	info *binance.ExchangeInfo
	err  error
}

func (m *mockExchangeInfoService) Symbol(string) ExchangeInfoService { return m }
func (m *mockExchangeInfoService) Do(context.Context) (*binance.ExchangeInfo, error) {
	return m.info, m.err
}

type BinanceVenueTestSuite struct {
	suite.Suite
	client *mockBinanceClient
	venue  *BinanceVenue
	ctx    context.Context
}

func TestBinanceVenueSuite(t *testing.T) {
	suite.Run(t, new(BinanceVenueTestSuite))
}

func (suite *BinanceVenueTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.client = newMockBinanceClient()
	suite.venue = newBinanceVenueWithClient(suite.client, "", logger.NewNop())
	suite.venue.now = func() time.Time { return time.Unix(1700000000, 0) }

	suite.client.bookTickersService.tickers = []*binance.BookTicker{
		{Symbol: "BTCUSDT", BidPrice: "65000.00", AskPrice: "65000.50"}, //nolint:exhaustruct
	}
	suite.client.exchangeInfoService.info = &binance.ExchangeInfo{ //nolint:exhaustruct
		Symbols: []binance.Symbol{
			{ //nolint:exhaustruct
				Symbol: "BTCUSDT",
				Filters: []map[string]interface{}{
					{"filterType": "PRICE_FILTER", "minPrice": "0.01", "maxPrice": "1000000.00", "tickSize": "0.01000000"},
					{"filterType": "LOT_SIZE", "minQty": "0.00001", "maxQty": "9000.00", "stepSize": "0.00001000"},
				},
			},
		},
	}
	suite.client.account().Balances = []binance.Balance{
		{Asset: "BTC", Free: "0.5", Locked: "0.1"},
		{Asset: "USDT", Free: "1000", Locked: "0"},
		{Asset: "ETH", Free: "0", Locked: "0"},
	}
}

func (m *mockBinanceClient) account() *binance.Account {
	if m.getAccountService.account == nil {
		m.getAccountService.account = &binance.Account{} //nolint:exhaustruct
	}

	return m.getAccountService.account
}

// ============================================================================
// Market data
// ============================================================================

func (suite *BinanceVenueTestSuite) TestQuote() {
	quote, err := suite.venue.Quote(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(65000.0, quote.Bid)
	suite.Equal(65000.5, quote.Ask)

	suite.client.bookTickersService.tickers = nil
	_, err = suite.venue.Quote(suite.ctx, "BTCUSDT")
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeQuoteUnavailable))
}

func (suite *BinanceVenueTestSuite) TestSymbolInfo() {
	info, err := suite.venue.SymbolInfo(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(0.01, info.Point)
	suite.Equal(int32(2), info.Digits)
	suite.Equal(50, info.SpreadPoints)
	suite.Equal(0, info.StopsLevelPoints)
	suite.Equal(0.00001, info.VolumeStep)

	_, err = suite.venue.SymbolInfo(suite.ctx, "DOGEUSDT")
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeSymbolInfoUnavailable))
}

// ============================================================================
// Positions and orders
// ============================================================================

func (suite *BinanceVenueTestSuite) TestPositionsFromBalances() {
	positions, err := suite.venue.Positions(suite.ctx, 100001)
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal("BTCUSDT", positions[0].Symbol)
	suite.InDelta(0.6, positions[0].Volume, 1e-9)
	suite.Equal(AssetTicket("BTC"), positions[0].Ticket)
	suite.Zero(positions[0].TakeProfit)

	_, err = suite.venue.PositionByTicket(suite.ctx, AssetTicket("ETH"))
	suite.True(apperrors.HasCode(err, apperrors.ErrCodePositionNotFound))

	suite.client.getAccountService.err = errors.New("timeout")
	_, err = suite.venue.Positions(suite.ctx, 100001)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeVenueUnavailable))
}

func (suite *BinanceVenueTestSuite) TestPendingOrdersFilterByClientID() {
	suite.client.listOpenOrdersService.orders = []*binance.Order{
		{Symbol: "BTCUSDT", OrderID: 77, ClientOrderID: "at100001-1", Price: "60000", OrigQuantity: "0.01", ExecutedQuantity: "0", Side: binance.SideTypeBuy, Type: binance.OrderTypeLimit},          //nolint:exhaustruct
		{Symbol: "BTCUSDT", OrderID: 78, ClientOrderID: "manual", Price: "70000", OrigQuantity: "0.02", ExecutedQuantity: "0", Side: binance.SideTypeSell, Type: binance.OrderTypeLimit},             //nolint:exhaustruct
		{Symbol: "BTCUSDT", OrderID: 79, ClientOrderID: "at100001-2", Price: "66000", OrigQuantity: "0.01", ExecutedQuantity: "0", Side: binance.SideTypeBuy, Type: binance.OrderTypeStopLossLimit}, //nolint:exhaustruct
	}

	mine, err := suite.venue.PendingOrders(suite.ctx, 100001)
	suite.Require().NoError(err)
	suite.Require().Len(mine, 2)
	suite.Equal(types.OrderTypeBuyLimit, mine[0].OrderType)
	suite.Equal(types.OrderTypeBuyStop, mine[1].OrderType)
	suite.Equal(int64(100001), mine[0].Magic)

	all, err := suite.venue.PendingOrders(suite.ctx, AllMagic)
	suite.Require().NoError(err)
	suite.Len(all, 3)
	suite.Equal(types.OrderTypeSellLimit, all[1].OrderType)
}

// ============================================================================
// Send
// ============================================================================

func (suite *BinanceVenueTestSuite) TestMarketBuy() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{ //nolint:exhaustruct
		OrderID:          9001,
		ExecutedQuantity: "0.01",
		Status:           binance.OrderStatusTypeFilled,
		Fills: []*binance.Fill{
			{Price: "65000.00", Quantity: "0.004"}, //nolint:exhaustruct
			{Price: "65001.00", Quantity: "0.006"}, //nolint:exhaustruct
		},
	}

	result, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
		Action: types.TradeActionDeal, Symbol: "BTCUSDT", Volume: 0.0100049, Type: types.OrderTypeBuy, Magic: 100001,
	})
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeDone, result.RetCode)
	suite.Equal(uint64(9001), result.Order)
	suite.InDelta(65000.6, result.Price, 1e-6)

	svc := suite.client.createOrderService
	suite.Equal(binance.OrderTypeMarket, svc.orderType)
	suite.Equal(binance.SideTypeBuy, svc.side)
	suite.Equal("0.01", svc.quantity)
	suite.Equal("at100001-1700000000000000000", svc.clientID)
}

func (suite *BinanceVenueTestSuite) TestPendingStop() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{OrderID: 9002, Price: "66000.12", Status: binance.OrderStatusTypeNew} //nolint:exhaustruct

	result, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
		Action: types.TradeActionPending, Symbol: "BTCUSDT", Volume: 0.01, Type: types.OrderTypeSellStop, Price: 66000.123,
	})
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeDone, result.RetCode)
	suite.Equal(66000.12, result.Price)

	svc := suite.client.createOrderService
	suite.Equal(binance.OrderTypeStopLossLimit, svc.orderType)
	suite.Equal("66000.12", svc.price)
	suite.Equal("66000.12", svc.stopPrice)
	suite.Equal(binance.TimeInForceTypeGTC, svc.tif)
}

func (suite *BinanceVenueTestSuite) TestCloseSellsBalance() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{OrderID: 9003, ExecutedQuantity: "0.6"} //nolint:exhaustruct

	result, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
		Action: types.TradeActionDeal, Volume: 5, Type: types.OrderTypeSell, Position: AssetTicket("BTC"),
	})
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeDone, result.RetCode)
	suite.Equal("BTCUSDT", suite.client.createOrderService.symbol)
	suite.Equal("0.6", suite.client.createOrderService.quantity)

	missing, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
		Action: types.TradeActionDeal, Volume: 1, Type: types.OrderTypeSell, Position: 42,
	})
	suite.Require().NoError(err)
	suite.Equal(types.RetCodePositionClosed, missing.RetCode)
}

func (suite *BinanceVenueTestSuite) TestCancel() {
	suite.client.listOpenOrdersService.orders = []*binance.Order{
		{Symbol: "BTCUSDT", OrderID: 77, ClientOrderID: "at100001-1", Price: "60000", OrigQuantity: "0.01", ExecutedQuantity: "0", Side: binance.SideTypeBuy, Type: binance.OrderTypeLimit}, //nolint:exhaustruct
	}

	result, err := suite.venue.Send(suite.ctx, types.VenueRequest{Action: types.TradeActionRemove, Order: 77}) //nolint:exhaustruct
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeDone, result.RetCode)
	suite.Equal("BTCUSDT", suite.client.cancelOrderService.symbol)
	suite.Equal(int64(77), suite.client.cancelOrderService.orderID)

	missing, err := suite.venue.Send(suite.ctx, types.VenueRequest{Action: types.TradeActionRemove, Order: 5}) //nolint:exhaustruct
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeInvalidOrder, missing.RetCode)
}

func (suite *BinanceVenueTestSuite) TestSLTPUnsupported() {
	result, err := suite.venue.Send(suite.ctx, types.VenueRequest{Action: types.TradeActionSLTP, Position: 1}) //nolint:exhaustruct
	suite.Require().NoError(err)
	suite.Equal(types.RetCodeInvalid, result.RetCode)
}

func (suite *BinanceVenueTestSuite) TestAPIErrorMapping() {
	tests := []struct {
		err  *common.APIError
		want types.RetCode
	}{
		{&common.APIError{Code: -2010, Message: "Account has insufficient balance for requested action."}, types.RetCodeNoMoney},
		{&common.APIError{Code: -1013, Message: "Filter failure: LOT_SIZE"}, types.RetCodeInvalidVolume},
		{&common.APIError{Code: -1013, Message: "Filter failure: PRICE_FILTER"}, types.RetCodeInvalidPrice},
		{&common.APIError{Code: -1021, Message: "Timestamp outside recvWindow"}, types.RetCodeTimeout},
		{&common.APIError{Code: -1111, Message: "Precision is over the maximum"}, types.RetCodeReject},
	}

	for _, tt := range tests {
		suite.client.createOrderService.err = tt.err
		result, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
			Action: types.TradeActionDeal, Symbol: "BTCUSDT", Volume: 0.01, Type: types.OrderTypeBuy,
		})
		suite.Require().NoError(err)
		suite.Equal(tt.want, result.RetCode, tt.err.Message)
		suite.Equal(tt.err.Message, result.Comment)
	}

	suite.client.createOrderService.err = errors.New("dial tcp: connection refused")
	_, err := suite.venue.Send(suite.ctx, types.VenueRequest{ //nolint:exhaustruct
		Action: types.TradeActionDeal, Symbol: "BTCUSDT", Volume: 0.01, Type: types.OrderTypeBuy,
	})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeVenueUnavailable))
}

func (suite *BinanceVenueTestSuite) TestClientOrderID() {
	magic, ok := parseClientOrderID(clientOrderID(100001, time.Unix(5, 0)))
	suite.True(ok)
	suite.Equal(int64(100001), magic)

	_, ok = parseClientOrderID("web_abc")
	suite.False(ok)
	_, ok = parseClientOrderID("atx-1")
	suite.False(ok)
}
