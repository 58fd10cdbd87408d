package venue

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

const defaultBridgeURL = "http://127.0.0.1:8787"

// BridgeVenue talks to a sidecar process that fronts the MetaTrader 5 terminal API.
//
// Endpoints:
//
//	GET  /positions?magic=N        open positions
//	GET  /positions/{ticket}       one position, 404 when closed
//	GET  /orders?magic=N           pending orders
//	GET  /orders/{ticket}          one pending order, 404 when gone
//	GET  /symbols/{symbol}         symbol info
//	GET  /symbols/{symbol}/tick    latest tick
//	POST /order_send               request body mirrors the terminal's order_send dict
type BridgeVenue struct {
	client *resty.Client
	logger *logger.Logger
}

type bridgePosition struct {
	Ticket       uint64  `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	PriceCurrent float64 `json:"price_current"`
	Profit       float64 `json:"profit"`
	Magic        int64   `json:"magic"`
	Comment      string  `json:"comment"`
	Time         int64   `json:"time"`
}

type bridgeOrder struct {
	Ticket        uint64  `json:"ticket"`
	Symbol        string  `json:"symbol"`
	Type          int     `json:"type"`
	VolumeCurrent float64 `json:"volume_current"`
	PriceOpen     float64 `json:"price_open"`
	StopLoss      float64 `json:"sl"`
	TakeProfit    float64 `json:"tp"`
	Magic         int64   `json:"magic"`
	Comment       string  `json:"comment"`
	TimeSetup     int64   `json:"time_setup"`
}

type bridgeTick struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Time int64   `json:"time"`
}

type bridgeSymbol struct {
	Name            string  `json:"name"`
	Point           float64 `json:"point"`
	Digits          int32   `json:"digits"`
	Spread          int     `json:"spread"`
	TradeStopsLevel int     `json:"trade_stops_level"`
	VolumeMin       float64 `json:"volume_min"`
	VolumeMax       float64 `json:"volume_max"`
	VolumeStep      float64 `json:"volume_step"`
}

type bridgeResult struct {
	Retcode   uint32  `json:"retcode"`
	Deal      uint64  `json:"deal"`
	Order     uint64  `json:"order"`
	Volume    float64 `json:"volume"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Comment   string  `json:"comment"`
	RequestID uint32  `json:"request_id"`
}

type bridgeError struct {
	Error string `json:"error"`
}

// NewBridgeVenue creates a client for the sidecar at baseURL.
func NewBridgeVenue(baseURL string, timeout time.Duration, log *logger.Logger) *BridgeVenue {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBridgeURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "argo-autotrade/bridge")

	return &BridgeVenue{
		client: client,
		logger: log.Named("bridge"),
	}
}

func (b *BridgeVenue) Name() string { return "mt5-bridge" }

func (b *BridgeVenue) Positions(ctx context.Context, magic int64) ([]types.Position, error) {
	var raw []bridgePosition

	req := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{})
	if magic != AllMagic {
		req.SetQueryParam("magic", strconv.FormatInt(magic, 10))
	}

	resp, err := req.Get("/positions")
	if err := b.check(resp, err, "list positions"); err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, p.toPosition())
	}

	return positions, nil
}

func (b *BridgeVenue) PositionByTicket(ctx context.Context, ticket uint64) (types.Position, error) {
	var raw bridgePosition

	resp, err := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{}).
		Get("/positions/" + strconv.FormatUint(ticket, 10))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", ticket)
	}

	if err := b.check(resp, err, "get position"); err != nil {
		return types.Position{}, err
	}

	return raw.toPosition(), nil
}

func (b *BridgeVenue) PendingOrders(ctx context.Context, magic int64) ([]types.PendingOrder, error) {
	var raw []bridgeOrder

	req := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{})
	if magic != AllMagic {
		req.SetQueryParam("magic", strconv.FormatInt(magic, 10))
	}

	resp, err := req.Get("/orders")
	if err := b.check(resp, err, "list orders"); err != nil {
		return nil, err
	}

	orders := make([]types.PendingOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, o.toPendingOrder())
	}

	return orders, nil
}

func (b *BridgeVenue) PendingOrderByTicket(ctx context.Context, ticket uint64) (types.PendingOrder, error) {
	var raw bridgeOrder

	resp, err := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{}).
		Get("/orders/" + strconv.FormatUint(ticket, 10))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return types.PendingOrder{}, errors.Newf(errors.ErrCodePendingOrderNotFound, "pending order %d not found", ticket)
	}

	if err := b.check(resp, err, "get order"); err != nil {
		return types.PendingOrder{}, err
	}

	return raw.toPendingOrder(), nil
}

func (b *BridgeVenue) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	var raw bridgeTick

	resp, err := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{}).
		Get("/symbols/" + url.PathEscape(symbol) + "/tick")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "no tick for %s", symbol)
	}

	if err := b.check(resp, err, "get tick"); err != nil {
		return types.Quote{}, err
	}

	if raw.Bid <= 0 || raw.Ask <= 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "empty tick for %s", symbol)
	}

	return types.Quote{
		Symbol: symbol,
		Bid:    raw.Bid,
		Ask:    raw.Ask,
		Time:   time.Unix(raw.Time, 0).UTC(),
	}, nil
}

func (b *BridgeVenue) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	var raw bridgeSymbol

	resp, err := b.client.R().SetContext(ctx).SetResult(&raw).SetError(&bridgeError{}).
		Get("/symbols/" + url.PathEscape(symbol))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolInfoUnavailable, "unknown symbol %s", symbol)
	}

	if err := b.check(resp, err, "get symbol"); err != nil {
		return types.SymbolInfo{}, err
	}

	return types.SymbolInfo{
		Symbol:           symbol,
		Point:            raw.Point,
		Digits:           raw.Digits,
		SpreadPoints:     raw.Spread,
		StopsLevelPoints: raw.TradeStopsLevel,
		VolumeMin:        raw.VolumeMin,
		VolumeMax:        raw.VolumeMax,
		VolumeStep:       raw.VolumeStep,
	}, nil
}

func (b *BridgeVenue) Send(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	var raw bridgeResult

	resp, err := b.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&raw).
		SetError(&bridgeError{}).
		Post("/order_send")
	if err := b.check(resp, err, "order_send"); err != nil {
		return types.OrderResult{}, err
	}

	b.logger.Debug("order_send answered",
		zap.String("action", req.Action.String()),
		zap.String("symbol", req.Symbol),
		zap.Uint32("retcode", raw.Retcode),
		zap.Uint64("order", raw.Order),
	)

	return types.OrderResult{
		RetCode:   types.RetCode(raw.Retcode),
		Deal:      raw.Deal,
		Order:     raw.Order,
		Volume:    raw.Volume,
		Price:     raw.Price,
		Bid:       raw.Bid,
		Ask:       raw.Ask,
		Comment:   raw.Comment,
		RequestID: raw.RequestID,
	}, nil
}

// check turns transport failures and non-2xx answers into ErrCodeVenueUnavailable.
func (b *BridgeVenue) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVenueUnavailable, err, "bridge %s failed", op)
	}

	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if apiErr, ok := resp.Error().(*bridgeError); ok && apiErr.Error != "" {
			msg = apiErr.Error
		}

		return errors.Newf(errors.ErrCodeVenueUnavailable, "bridge %s: status %d: %s", op, resp.StatusCode(), msg)
	}

	return nil
}

func (p bridgePosition) toPosition() types.Position {
	side := types.SideBuy
	if p.Type == int(types.OrderTypeSell) {
		side = types.SideSell
	}

	return types.Position{
		Ticket:       p.Ticket,
		Symbol:       p.Symbol,
		Side:         side,
		Volume:       p.Volume,
		OpenPrice:    p.PriceOpen,
		StopLoss:     p.StopLoss,
		TakeProfit:   p.TakeProfit,
		CurrentPrice: p.PriceCurrent,
		Profit:       p.Profit,
		Magic:        p.Magic,
		Comment:      p.Comment,
		OpenTime:     time.Unix(p.Time, 0).UTC(),
	}
}

func (o bridgeOrder) toPendingOrder() types.PendingOrder {
	return types.PendingOrder{
		Ticket:     o.Ticket,
		Symbol:     o.Symbol,
		OrderType:  types.OrderType(o.Type),
		Volume:     o.VolumeCurrent,
		Price:      o.PriceOpen,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Magic:      o.Magic,
		Comment:    o.Comment,
		SetupTime:  time.Unix(o.TimeSetup, 0).UTC(),
	}
}
