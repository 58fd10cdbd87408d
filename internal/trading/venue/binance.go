package venue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/internal/utils"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// BinanceConfig holds spot API credentials.
type BinanceConfig struct {
	APIKey     string `json:"apiKey" validate:"required"`
	SecretKey  string `json:"secretKey" validate:"required"`
	QuoteAsset string `json:"quoteAsset"`
}

func (c *BinanceConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance venue config", err)
	}

	return nil
}

// Service interfaces for mocking the Binance API

type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

type ListOpenOrdersService interface {
	Do(ctx context.Context) ([]*binance.Order, error)
}

type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

type ListBookTickersService interface {
	Symbol(symbol string) ListBookTickersService
	Do(ctx context.Context) ([]*binance.BookTicker, error)
}

type ExchangeInfoService interface {
	Symbol(symbol string) ExchangeInfoService
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// BinanceClient abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewListOpenOrdersService() ListOpenOrdersService
	NewCancelOrderService() CancelOrderService
	NewListBookTickersService() ListBookTickersService
	NewExchangeInfoService() ExchangeInfoService
}

type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListOpenOrdersService() ListOpenOrdersService {
	return &realListOpenOrdersService{service: r.client.NewListOpenOrdersService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewListBookTickersService() ListBookTickersService {
	return &realListBookTickersService{service: r.client.NewListBookTickersService()}
}

func (r *realBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(price string) CreateOrderService {
	s.service = s.service.StopPrice(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListOpenOrdersService struct {
	service *binance.ListOpenOrdersService
}

func (s *realListOpenOrdersService) Do(ctx context.Context) ([]*binance.Order, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realListBookTickersService struct {
	service *binance.ListBookTickersService
}

func (s *realListBookTickersService) Symbol(symbol string) ListBookTickersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListBookTickersService) Do(ctx context.Context) ([]*binance.BookTicker, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Symbol(symbol string) ExchangeInfoService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

// BinanceVenue maps the spot API onto Venue.
//
// Spot has no positions: every non-quote balance is reported as an untagged BUY
// position with ticket derived from the asset name and no take profit. Resting
// orders carry the magic in their client order id ("at<magic>-..."), which is how
// PendingOrders filters them. SLTP edits are rejected with RetCodeInvalid.
type BinanceVenue struct {
	client     BinanceClient
	quoteAsset string
	logger     *logger.Logger
	now        func() time.Time
}

// NewBinanceVenue connects to Binance spot; useTestnet selects https://testnet.binance.vision/.
func NewBinanceVenue(cfg BinanceConfig, useTestnet bool, log *logger.Logger) *BinanceVenue {
	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	return newBinanceVenueWithClient(&realBinanceClient{client: client}, cfg.QuoteAsset, log)
}

func newBinanceVenueWithClient(client BinanceClient, quoteAsset string, log *logger.Logger) *BinanceVenue {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}

	return &BinanceVenue{
		client:     client,
		quoteAsset: quoteAsset,
		logger:     log.Named("binance"),
		now:        time.Now,
	}
}

func (b *BinanceVenue) Name() string { return "binance-spot" }

// Positions reports balances as positions. Balances carry no tag, so magic does not filter them.
func (b *BinanceVenue) Positions(ctx context.Context, _ int64) ([]types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVenueUnavailable, "failed to get account info from Binance", err)
	}

	positions := make([]types.Position, 0)

	for _, balance := range account.Balances {
		if balance.Asset == b.quoteAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total <= 0 {
			continue
		}

		positions = append(positions, types.Position{
			Ticket:       AssetTicket(balance.Asset),
			Symbol:       balance.Asset + b.quoteAsset,
			Side:         types.SideBuy,
			Volume:       total,
			OpenPrice:    0,
			StopLoss:     0,
			TakeProfit:   0,
			CurrentPrice: 0,
			Profit:       0,
			Magic:        0,
			Comment:      "",
			OpenTime:     time.Time{},
		})
	}

	return positions, nil
}

func (b *BinanceVenue) PositionByTicket(ctx context.Context, ticket uint64) (types.Position, error) {
	positions, err := b.Positions(ctx, AllMagic)
	if err != nil {
		return types.Position{}, err
	}

	for _, pos := range positions {
		if pos.Ticket == ticket {
			return pos, nil
		}
	}

	return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", ticket)
}

func (b *BinanceVenue) PendingOrders(ctx context.Context, magic int64) ([]types.PendingOrder, error) {
	openOrders, err := b.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVenueUnavailable, "failed to get open orders from Binance", err)
	}

	orders := make([]types.PendingOrder, 0, len(openOrders))

	for _, order := range openOrders {
		orderMagic, tagged := parseClientOrderID(order.ClientOrderID)
		if magic != AllMagic && (!tagged || orderMagic != magic) {
			continue
		}

		orders = append(orders, b.toPendingOrder(order, orderMagic))
	}

	return orders, nil
}

func (b *BinanceVenue) PendingOrderByTicket(ctx context.Context, ticket uint64) (types.PendingOrder, error) {
	orders, err := b.PendingOrders(ctx, AllMagic)
	if err != nil {
		return types.PendingOrder{}, err
	}

	for _, order := range orders {
		if order.Ticket == ticket {
			return order, nil
		}
	}

	return types.PendingOrder{}, errors.Newf(errors.ErrCodePendingOrderNotFound, "pending order %d not found", ticket)
}

func (b *BinanceVenue) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	tickers, err := b.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeQuoteUnavailable, err, "failed to get book ticker for %s", symbol)
	}

	if len(tickers) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "no book ticker for %s", symbol)
	}

	bid, _ := strconv.ParseFloat(tickers[0].BidPrice, 64)
	ask, _ := strconv.ParseFloat(tickers[0].AskPrice, 64)

	if bid <= 0 || ask <= 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "empty book for %s", symbol)
	}

	return types.Quote{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		Time:   b.now(),
	}, nil
}

func (b *BinanceVenue) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.SymbolInfo{}, errors.Wrapf(errors.ErrCodeSymbolInfoUnavailable, err, "failed to get exchange info for %s", symbol)
	}

	var found *binance.Symbol

	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			found = &info.Symbols[i]

			break
		}
	}

	if found == nil {
		return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolInfoUnavailable, "unknown symbol %s", symbol)
	}

	result := types.SymbolInfo{
		Symbol:           symbol,
		Point:            0,
		Digits:           0,
		SpreadPoints:     0,
		StopsLevelPoints: 0,
		VolumeMin:        0,
		VolumeMax:        0,
		VolumeStep:       0,
	}

	if pf := found.PriceFilter(); pf != nil {
		result.Point, _ = strconv.ParseFloat(pf.TickSize, 64)
		result.Digits = utils.DecimalPlaces(pf.TickSize)
	}

	if lot := found.LotSizeFilter(); lot != nil {
		result.VolumeMin, _ = strconv.ParseFloat(lot.MinQuantity, 64)
		result.VolumeMax, _ = strconv.ParseFloat(lot.MaxQuantity, 64)
		result.VolumeStep, _ = strconv.ParseFloat(lot.StepSize, 64)
	}

	if result.Point <= 0 {
		return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolInfoUnavailable, "no price filter for %s", symbol)
	}

	// spread is not part of exchange info; derive it from the book
	if quote, err := b.Quote(ctx, symbol); err == nil {
		result.SpreadPoints = int(utils.RoundPrice((quote.Ask-quote.Bid)/result.Point, 0))
	}

	return result, nil
}

func (b *BinanceVenue) Send(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	switch req.Action {
	case types.TradeActionDeal:
		if req.Position != 0 {
			return b.closePosition(ctx, req)
		}

		return b.createOrder(ctx, req)
	case types.TradeActionPending:
		return b.createOrder(ctx, req)
	case types.TradeActionRemove:
		return b.cancelOrder(ctx, req)
	default:
		return rejected(types.RetCodeInvalid, fmt.Sprintf("%s is not supported on Binance spot", req.Action)), nil
	}
}

func (b *BinanceVenue) closePosition(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	pos, err := b.PositionByTicket(ctx, req.Position)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodePositionNotFound) {
			return rejected(types.RetCodePositionClosed, err.Error()), nil
		}

		return types.OrderResult{}, err
	}

	if req.Type != types.OrderTypeSell {
		return rejected(types.RetCodeInvalid, "spot balances close with SELL"), nil
	}

	closing := req
	closing.Symbol = pos.Symbol
	closing.Position = 0

	if closing.Volume > pos.Volume {
		closing.Volume = pos.Volume
	}

	return b.createOrder(ctx, closing)
}

func (b *BinanceVenue) createOrder(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	side := binance.SideTypeBuy
	if req.Type.Side() == types.SideSell {
		side = binance.SideTypeSell
	}

	info, err := b.SymbolInfo(ctx, req.Symbol)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSymbolInfoUnavailable) {
			return rejected(types.RetCodeInvalid, err.Error()), nil
		}

		return types.OrderResult{}, err
	}

	quantity := utils.FloorToStep(req.Volume, info.VolumeStep)
	if quantity <= 0 || (info.VolumeMin > 0 && quantity < info.VolumeMin) {
		return rejected(types.RetCodeInvalidVolume, fmt.Sprintf("quantity %v below lot size", req.Volume)), nil
	}

	service := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64)).
		NewClientOrderID(clientOrderID(req.Magic, b.now()))

	price := strconv.FormatFloat(utils.RoundPrice(req.Price, info.Digits), 'f', -1, 64)

	switch req.Type {
	case types.OrderTypeBuy, types.OrderTypeSell:
		service = service.Type(binance.OrderTypeMarket)
	case types.OrderTypeBuyLimit, types.OrderTypeSellLimit:
		service = service.Type(binance.OrderTypeLimit).
			Price(price).
			TimeInForce(binance.TimeInForceTypeGTC)
	case types.OrderTypeBuyStop, types.OrderTypeSellStop:
		service = service.Type(binance.OrderTypeStopLossLimit).
			Price(price).
			StopPrice(price).
			TimeInForce(binance.TimeInForceTypeGTC)
	default:
		return rejected(types.RetCodeInvalid, "unsupported order type "+req.Type.String()), nil
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return b.apiFailure(err, "create order")
	}

	executed, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	fill := averageFillPrice(resp)

	if fill == 0 {
		fill, _ = strconv.ParseFloat(resp.Price, 64)
	}

	return types.OrderResult{
		RetCode:   types.RetCodeDone,
		Deal:      uint64(resp.OrderID),
		Order:     uint64(resp.OrderID),
		Volume:    executed,
		Price:     fill,
		Bid:       0,
		Ask:       0,
		Comment:   string(resp.Status),
		RequestID: 0,
	}, nil
}

func (b *BinanceVenue) cancelOrder(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	order, err := b.PendingOrderByTicket(ctx, req.Order)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodePendingOrderNotFound) {
			return rejected(types.RetCodeInvalidOrder, err.Error()), nil
		}

		return types.OrderResult{}, err
	}

	if _, err := b.client.NewCancelOrderService().
		Symbol(order.Symbol).
		OrderID(int64(order.Ticket)).
		Do(ctx); err != nil {
		return b.apiFailure(err, "cancel order")
	}

	result := rejected(types.RetCodeDone, "cancelled")
	result.Order = order.Ticket

	return result, nil
}

// apiFailure maps API rejections onto return codes; anything else is a transport fault.
func (b *BinanceVenue) apiFailure(err error, op string) (types.OrderResult, error) {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeVenueUnavailable, err, "binance %s failed", op)
	}

	b.logger.Warn("binance rejected request",
		zap.String("op", op),
		zap.Int64("code", apiErr.Code),
		zap.String("message", apiErr.Message),
	)

	return rejected(retCodeForAPIError(apiErr), apiErr.Message), nil
}

func retCodeForAPIError(apiErr *common.APIError) types.RetCode {
	msg := strings.ToLower(apiErr.Message)

	switch apiErr.Code {
	case -1013:
		if strings.Contains(msg, "lot_size") || strings.Contains(msg, "notional") {
			return types.RetCodeInvalidVolume
		}

		return types.RetCodeInvalidPrice
	case -2010:
		if strings.Contains(msg, "insufficient balance") {
			return types.RetCodeNoMoney
		}

		if strings.Contains(msg, "market is closed") {
			return types.RetCodeMarketClosed
		}

		return types.RetCodeReject
	case -1021, -1007:
		return types.RetCodeTimeout
	case -1003, -1015:
		return types.RetCodeTooManyRequests
	case -2015, -2014:
		return types.RetCodeTradeDisabled
	default:
		return types.RetCodeReject
	}
}

func (b *BinanceVenue) toPendingOrder(order *binance.Order, magic int64) types.PendingOrder {
	price, _ := strconv.ParseFloat(order.Price, 64)
	orig, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	executed, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	sell := order.Side == binance.SideTypeSell
	orderType := types.OrderTypeBuyLimit

	switch {
	case order.Type == binance.OrderTypeStopLossLimit && sell:
		orderType = types.OrderTypeSellStop
	case order.Type == binance.OrderTypeStopLossLimit:
		orderType = types.OrderTypeBuyStop
	case sell:
		orderType = types.OrderTypeSellLimit
	}

	return types.PendingOrder{
		Ticket:     uint64(order.OrderID),
		Symbol:     order.Symbol,
		OrderType:  orderType,
		Volume:     orig - executed,
		Price:      price,
		StopLoss:   0,
		TakeProfit: 0,
		Magic:      magic,
		Comment:    order.ClientOrderID,
		SetupTime:  time.UnixMilli(order.Time).UTC(),
	}
}

func rejected(code types.RetCode, comment string) types.OrderResult {
	return types.OrderResult{
		RetCode:   code,
		Deal:      0,
		Order:     0,
		Volume:    0,
		Price:     0,
		Bid:       0,
		Ask:       0,
		Comment:   comment,
		RequestID: 0,
	}
}

func averageFillPrice(resp *binance.CreateOrderResponse) float64 {
	var qty, notional float64

	for _, fill := range resp.Fills {
		p, _ := strconv.ParseFloat(fill.Price, 64)
		q, _ := strconv.ParseFloat(fill.Quantity, 64)
		qty += q
		notional += p * q
	}

	if qty == 0 {
		return 0
	}

	return notional / qty
}

// AssetTicket derives the stable ticket reported for a spot balance.
func AssetTicket(asset string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(asset))

	// keep it inside int64 so it survives JSON round trips through signed parsers
	return h.Sum64() >> 1
}

func clientOrderID(magic int64, now time.Time) string {
	return fmt.Sprintf("at%d-%d", magic, now.UnixNano())
}

func parseClientOrderID(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, "at")
	if !ok {
		return 0, false
	}

	magicPart, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}

	magic, err := strconv.ParseInt(magicPart, 10, 64)
	if err != nil {
		return 0, false
	}

	return magic, true
}
