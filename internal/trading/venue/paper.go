package venue

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PaperVenue simulates a hedging MetaTrader 5 account in memory.
// Market deals fill at the current quote, pending orders rest until removed,
// and every request is answered with the return code a real terminal would give.
type PaperVenue struct {
	mu         sync.Mutex
	nextTicket uint64
	nextReqID  uint32
	quotes     map[string]types.Quote
	symbols    map[string]types.SymbolInfo
	positions  map[uint64]types.Position
	orders     map[uint64]types.PendingOrder
	requests   []types.VenueRequest
	now        func() time.Time
}

// PaperSeed is the YAML layout accepted by LoadSeedFile.
type PaperSeed struct {
	Symbols       []types.SymbolInfo   `yaml:"symbols"`
	Quotes        []types.Quote        `yaml:"quotes"`
	Positions     []types.Position     `yaml:"positions"`
	PendingOrders []types.PendingOrder `yaml:"pending_orders"`
}

func NewPaperVenue() *PaperVenue {
	return &PaperVenue{
		mu:         sync.Mutex{},
		nextTicket: 1000,
		nextReqID:  0,
		quotes:     make(map[string]types.Quote),
		symbols:    make(map[string]types.SymbolInfo),
		positions:  make(map[uint64]types.Position),
		orders:     make(map[uint64]types.PendingOrder),
		requests:   nil,
		now:        time.Now,
	}
}

func (p *PaperVenue) Name() string { return "paper" }

// LoadSeedFile reads symbols, quotes, positions and pending orders from a YAML file.
func (p *PaperVenue) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read paper seed %s", path)
	}

	var seed PaperSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse paper seed %s", path)
	}

	for _, info := range seed.Symbols {
		p.SetSymbolInfo(info)
	}

	for _, quote := range seed.Quotes {
		p.SetQuote(quote)
	}

	for _, pos := range seed.Positions {
		p.AddPosition(pos)
	}

	for _, order := range seed.PendingOrders {
		p.AddPendingOrder(order)
	}

	return nil
}

func (p *PaperVenue) SetQuote(quote types.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if quote.Time.IsZero() {
		quote.Time = p.now()
	}
	p.quotes[quote.Symbol] = quote
}

// RemoveQuote makes the symbol's tick unavailable.
func (p *PaperVenue) RemoveQuote(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.quotes, symbol)
}

func (p *PaperVenue) SetSymbolInfo(info types.SymbolInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.symbols[info.Symbol] = info
}

// AddPosition inserts an open position and returns its ticket. A zero ticket is assigned.
func (p *PaperVenue) AddPosition(pos types.Position) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos.Ticket == 0 {
		pos.Ticket = p.ticket()
	} else if pos.Ticket >= p.nextTicket {
		p.nextTicket = pos.Ticket + 1
	}

	if pos.OpenTime.IsZero() {
		pos.OpenTime = p.now()
	}
	p.positions[pos.Ticket] = pos

	return pos.Ticket
}

// AddPendingOrder inserts a resting order and returns its ticket. A zero ticket is assigned.
func (p *PaperVenue) AddPendingOrder(order types.PendingOrder) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if order.Ticket == 0 {
		order.Ticket = p.ticket()
	} else if order.Ticket >= p.nextTicket {
		p.nextTicket = order.Ticket + 1
	}

	if order.SetupTime.IsZero() {
		order.SetupTime = p.now()
	}
	p.orders[order.Ticket] = order

	return order.Ticket
}

// Requests returns every request received by Send, in order.
func (p *PaperVenue) Requests() []types.VenueRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.VenueRequest, len(p.requests))
	copy(out, p.requests)

	return out
}

func (p *PaperVenue) Positions(_ context.Context, magic int64) ([]types.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		if matchesMagic(magic, pos.Magic) {
			out = append(out, p.markToMarket(pos))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })

	return out, nil
}

func (p *PaperVenue) PositionByTicket(_ context.Context, ticket uint64) (types.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[ticket]
	if !ok {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", ticket)
	}

	return p.markToMarket(pos), nil
}

func (p *PaperVenue) PendingOrders(_ context.Context, magic int64) ([]types.PendingOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.PendingOrder, 0, len(p.orders))
	for _, order := range p.orders {
		if matchesMagic(magic, order.Magic) {
			out = append(out, order)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })

	return out, nil
}

func (p *PaperVenue) PendingOrderByTicket(_ context.Context, ticket uint64) (types.PendingOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[ticket]
	if !ok {
		return types.PendingOrder{}, errors.Newf(errors.ErrCodePendingOrderNotFound, "pending order %d not found", ticket)
	}

	return order, nil
}

func (p *PaperVenue) Quote(_ context.Context, symbol string) (types.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	quote, ok := p.quotes[symbol]
	if !ok {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "no tick for %s", symbol)
	}

	return quote, nil
}

func (p *PaperVenue) SymbolInfo(_ context.Context, symbol string) (types.SymbolInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.symbols[symbol]
	if !ok {
		return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolInfoUnavailable, "unknown symbol %s", symbol)
	}

	return info, nil
}

func (p *PaperVenue) Send(ctx context.Context, req types.VenueRequest) (types.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeVenueUnavailable, "paper venue request cancelled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	p.nextReqID++

	switch req.Action {
	case types.TradeActionDeal:
		if req.Position != 0 {
			return p.closePosition(req), nil
		}

		return p.openPosition(req), nil
	case types.TradeActionPending:
		return p.placePending(req), nil
	case types.TradeActionSLTP:
		return p.modifyPosition(req), nil
	case types.TradeActionRemove:
		return p.removePending(req), nil
	default:
		return p.reply(types.RetCodeInvalid, "unsupported action "+req.Action.String()), nil
	}
}

func (p *PaperVenue) openPosition(req types.VenueRequest) types.OrderResult {
	quote, info, result, ok := p.market(req.Symbol)
	if !ok {
		return result
	}

	if code := checkVolume(info, req.Volume); code != 0 {
		return p.reply(code, fmt.Sprintf("invalid volume %v", req.Volume))
	}

	side := req.Type.Side()
	if !stopsValid(side, req.StopLoss, req.TakeProfit, quote, info) {
		return p.reply(types.RetCodeInvalidStops, "invalid stops")
	}

	fill := quote.Ask
	if side == types.SideSell {
		fill = quote.Bid
	}

	ticket := p.ticket()
	p.positions[ticket] = types.Position{
		Ticket:       ticket,
		Symbol:       req.Symbol,
		Side:         side,
		Volume:       req.Volume,
		OpenPrice:    fill,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		CurrentPrice: fill,
		Profit:       0,
		Magic:        req.Magic,
		Comment:      req.Comment,
		OpenTime:     p.now(),
	}

	return p.filled(ticket, req.Volume, fill, quote)
}

func (p *PaperVenue) closePosition(req types.VenueRequest) types.OrderResult {
	pos, ok := p.positions[req.Position]
	if !ok {
		return p.reply(types.RetCodePositionClosed, fmt.Sprintf("position %d already closed", req.Position))
	}

	if req.Type.Side() == pos.Side {
		return p.reply(types.RetCodeInvalid, "close must use the opposite side")
	}

	quote, _, result, ok := p.market(pos.Symbol)
	if !ok {
		return result
	}

	if req.Volume <= 0 || req.Volume > pos.Volume+volumeEpsilon {
		return p.reply(types.RetCodeInvalidVolume, fmt.Sprintf("invalid close volume %v", req.Volume))
	}

	fill := quote.Bid
	if pos.Side == types.SideSell {
		fill = quote.Ask
	}

	remaining := pos.Volume - req.Volume
	if remaining <= volumeEpsilon {
		delete(p.positions, pos.Ticket)
	} else {
		pos.Volume = remaining
		p.positions[pos.Ticket] = pos
	}

	return p.filled(p.ticket(), req.Volume, fill, quote)
}

func (p *PaperVenue) placePending(req types.VenueRequest) types.OrderResult {
	quote, info, result, ok := p.market(req.Symbol)
	if !ok {
		return result
	}

	if code := checkVolume(info, req.Volume); code != 0 {
		return p.reply(code, fmt.Sprintf("invalid volume %v", req.Volume))
	}

	if !pendingPriceValid(req.Type, req.Price, quote) {
		return p.reply(types.RetCodeInvalidPrice, fmt.Sprintf("invalid %s price %v", req.Type, req.Price))
	}

	ticket := p.ticket()
	p.orders[ticket] = types.PendingOrder{
		Ticket:     ticket,
		Symbol:     req.Symbol,
		OrderType:  req.Type,
		Volume:     req.Volume,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Magic:      req.Magic,
		Comment:    req.Comment,
		SetupTime:  p.now(),
	}

	result = p.reply(types.RetCodeDone, "Request executed")
	result.Order = ticket
	result.Volume = req.Volume
	result.Price = req.Price
	result.Bid = quote.Bid
	result.Ask = quote.Ask

	return result
}

func (p *PaperVenue) modifyPosition(req types.VenueRequest) types.OrderResult {
	pos, ok := p.positions[req.Position]
	if !ok {
		return p.reply(types.RetCodePositionClosed, fmt.Sprintf("position %d not found", req.Position))
	}

	if pos.StopLoss == req.StopLoss && pos.TakeProfit == req.TakeProfit {
		return p.reply(types.RetCodeNoChanges, "no changes")
	}

	quote, info, result, ok := p.market(pos.Symbol)
	if !ok {
		return result
	}

	if !stopsValid(pos.Side, req.StopLoss, req.TakeProfit, quote, info) {
		return p.reply(types.RetCodeInvalidStops, "invalid stops")
	}

	pos.StopLoss = req.StopLoss
	pos.TakeProfit = req.TakeProfit
	p.positions[pos.Ticket] = pos

	result = p.reply(types.RetCodeDone, "Request executed")
	result.Bid = quote.Bid
	result.Ask = quote.Ask

	return result
}

func (p *PaperVenue) removePending(req types.VenueRequest) types.OrderResult {
	if _, ok := p.orders[req.Order]; !ok {
		return p.reply(types.RetCodeInvalidOrder, fmt.Sprintf("order %d not found", req.Order))
	}

	delete(p.orders, req.Order)

	result := p.reply(types.RetCodeDone, "Request executed")
	result.Order = req.Order

	return result
}

// market returns the quote and symbol info, or a rejection when either is missing.
func (p *PaperVenue) market(symbol string) (types.Quote, types.SymbolInfo, types.OrderResult, bool) {
	info, ok := p.symbols[symbol]
	if !ok {
		return types.Quote{}, types.SymbolInfo{}, p.reply(types.RetCodeInvalid, "unknown symbol "+symbol), false
	}

	quote, ok := p.quotes[symbol]
	if !ok {
		return types.Quote{}, info, p.reply(types.RetCodePriceOff, "no quotes for "+symbol), false
	}

	return quote, info, types.OrderResult{}, true
}

func (p *PaperVenue) markToMarket(pos types.Position) types.Position {
	quote, ok := p.quotes[pos.Symbol]
	if !ok {
		return pos
	}

	if pos.Side == types.SideBuy {
		pos.CurrentPrice = quote.Bid
		pos.Profit = (quote.Bid - pos.OpenPrice) * pos.Volume
	} else {
		pos.CurrentPrice = quote.Ask
		pos.Profit = (pos.OpenPrice - quote.Ask) * pos.Volume
	}

	return pos
}

func (p *PaperVenue) ticket() uint64 {
	t := p.nextTicket
	p.nextTicket++

	return t
}

func (p *PaperVenue) reply(code types.RetCode, comment string) types.OrderResult {
	return types.OrderResult{
		RetCode:   code,
		Deal:      0,
		Order:     0,
		Volume:    0,
		Price:     0,
		Bid:       0,
		Ask:       0,
		Comment:   comment,
		RequestID: p.nextReqID,
	}
}

func (p *PaperVenue) filled(ticket uint64, volume, price float64, quote types.Quote) types.OrderResult {
	result := p.reply(types.RetCodeDone, "Request executed")
	result.Deal = ticket
	result.Order = ticket
	result.Volume = volume
	result.Price = price
	result.Bid = quote.Bid
	result.Ask = quote.Ask

	return result
}

const volumeEpsilon = 1e-9

func checkVolume(info types.SymbolInfo, volume float64) types.RetCode {
	if volume <= 0 {
		return types.RetCodeInvalidVolume
	}

	if info.VolumeMin > 0 && volume < info.VolumeMin-volumeEpsilon {
		return types.RetCodeInvalidVolume
	}

	if info.VolumeMax > 0 && volume > info.VolumeMax+volumeEpsilon {
		return types.RetCodeLimitVolume
	}

	if info.VolumeStep > 0 {
		steps := volume / info.VolumeStep
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			return types.RetCodeInvalidVolume
		}
	}

	return 0
}

// stopsValid applies the stops level the way the terminal does: buy positions are
// measured from bid, sell positions from ask.
func stopsValid(side types.Side, stopLoss, takeProfit float64, quote types.Quote, info types.SymbolInfo) bool {
	minDist := float64(info.StopsLevelPoints) * info.Point
	tolerance := info.Point / 2

	if side == types.SideBuy {
		if stopLoss > 0 && stopLoss > quote.Bid-minDist+tolerance {
			return false
		}

		return takeProfit <= 0 || takeProfit >= quote.Bid+minDist-tolerance
	}

	if stopLoss > 0 && stopLoss < quote.Ask+minDist-tolerance {
		return false
	}

	return takeProfit <= 0 || takeProfit <= quote.Ask-minDist+tolerance
}

func pendingPriceValid(orderType types.OrderType, price float64, quote types.Quote) bool {
	if price <= 0 {
		return false
	}

	switch orderType {
	case types.OrderTypeBuyLimit:
		return price < quote.Ask
	case types.OrderTypeBuyStop:
		return price > quote.Ask
	case types.OrderTypeSellLimit:
		return price > quote.Bid
	case types.OrderTypeSellStop:
		return price < quote.Bid
	default:
		return false
	}
}
