package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
)

// ActionKind is the kind of an internal order request.
type ActionKind string

const (
	ActionOpenBuy  ActionKind = "OPEN_BUY"
	ActionOpenSell ActionKind = "OPEN_SELL"
	ActionClose    ActionKind = "CLOSE"
	ActionCancel   ActionKind = "CANCEL"
	ActionModify   ActionKind = "MODIFY"
)

// TradeAction is the request action understood by the venue.
// Values follow the MetaTrader 5 TRADE_ACTION_* enumeration.
type TradeAction int

const (
	TradeActionDeal    TradeAction = 1
	TradeActionPending TradeAction = 5
	TradeActionSLTP    TradeAction = 6
	TradeActionModify  TradeAction = 7
	TradeActionRemove  TradeAction = 8
)

func (a TradeAction) String() string {
	switch a {
	case TradeActionDeal:
		return "DEAL"
	case TradeActionPending:
		return "PENDING"
	case TradeActionSLTP:
		return "SLTP"
	case TradeActionModify:
		return "MODIFY"
	case TradeActionRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("ACTION(%d)", int(a))
	}
}

// OrderType follows the MetaTrader 5 ORDER_TYPE_* enumeration.
type OrderType int

const (
	OrderTypeBuy OrderType = iota
	OrderTypeSell
	OrderTypeBuyLimit
	OrderTypeSellLimit
	OrderTypeBuyStop
	OrderTypeSellStop
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeBuy:
		return "BUY"
	case OrderTypeSell:
		return "SELL"
	case OrderTypeBuyLimit:
		return "BUY_LIMIT"
	case OrderTypeSellLimit:
		return "SELL_LIMIT"
	case OrderTypeBuyStop:
		return "BUY_STOP"
	case OrderTypeSellStop:
		return "SELL_STOP"
	default:
		return fmt.Sprintf("TYPE(%d)", int(t))
	}
}

// IsMarket reports whether the type executes immediately at the quote.
func (t OrderType) IsMarket() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

// IsPending reports whether the type rests on the venue until triggered.
func (t OrderType) IsPending() bool {
	switch t {
	case OrderTypeBuyLimit, OrderTypeSellLimit, OrderTypeBuyStop, OrderTypeSellStop:
		return true
	default:
		return false
	}
}

// Side returns the direction of the order type.
func (t OrderType) Side() Side {
	switch t {
	case OrderTypeSell, OrderTypeSellLimit, OrderTypeSellStop:
		return SideSell
	default:
		return SideBuy
	}
}

// Side is the direction of a position or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that closes a position of this side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

// MarketOrderType returns the market order type for the side.
func (s Side) MarketOrderType() OrderType {
	if s == SideSell {
		return OrderTypeSell
	}

	return OrderTypeBuy
}

// FillPolicy follows ORDER_FILLING_*.
type FillPolicy int

const (
	FillPolicyFOK FillPolicy = iota
	FillPolicyIOC
	FillPolicyReturn
)

// TimePolicy follows ORDER_TIME_*.
type TimePolicy int

const (
	TimePolicyGTC TimePolicy = iota
	TimePolicyDay
	TimePolicySpecified
	TimePolicySpecifiedDay
)

// OrderRequest is what the gateway submits. Prices are absolute, 0 means unset.
// Comment carries the full decision rationale; the gateway trims it for the venue.
type OrderRequest struct {
	Kind       ActionKind `yaml:"kind" json:"kind" validate:"required,oneof=OPEN_BUY OPEN_SELL CLOSE CANCEL MODIFY"`
	Symbol     string     `yaml:"symbol" json:"symbol"`
	Volume     float64    `yaml:"volume" json:"volume" validate:"gte=0"`
	OrderType  OrderType  `yaml:"order_type" json:"order_type" validate:"gte=0,lte=5"`
	Price      float64    `yaml:"price" json:"price" validate:"gte=0"`
	StopLoss   float64    `yaml:"stop_loss" json:"stop_loss" validate:"gte=0"`
	TakeProfit float64    `yaml:"take_profit" json:"take_profit" validate:"gte=0"`
	// Ticket references the position (CLOSE, MODIFY) or pending order (CANCEL).
	Ticket     uint64     `yaml:"ticket" json:"ticket"`
	Deviation  int        `yaml:"deviation" json:"deviation" validate:"gte=0"`
	TimePolicy TimePolicy `yaml:"time_policy" json:"time_policy"`
	FillPolicy FillPolicy `yaml:"fill_policy" json:"fill_policy"`
	Comment    string     `yaml:"comment" json:"comment"`
}

// TradeAction maps the request kind and order type to the venue action.
func (r OrderRequest) TradeAction() TradeAction {
	switch r.Kind {
	case ActionOpenBuy, ActionOpenSell:
		if r.OrderType.IsPending() {
			return TradeActionPending
		}

		return TradeActionDeal
	case ActionModify:
		return TradeActionSLTP
	case ActionCancel:
		return TradeActionRemove
	default:
		return TradeActionDeal
	}
}

// Validate checks the fields each kind requires. Every failure carries a validation code.
func (r OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order request", err)
	}

	switch r.Kind {
	case ActionOpenBuy, ActionOpenSell:
		if err := r.requireSymbol(); err != nil {
			return err
		}

		if err := r.requireVolumeAndPrice(); err != nil {
			return err
		}

		side := SideBuy
		if r.Kind == ActionOpenSell {
			side = SideSell
		}

		if r.OrderType.Side() != side {
			return errors.Newf(errors.ErrCodeInvalidOrderType, "order type %s does not match %s", r.OrderType, r.Kind)
		}

		return ValidateLevels(side, r.Price, r.StopLoss, r.TakeProfit)
	case ActionClose:
		if err := r.requireTicket(); err != nil {
			return err
		}

		if err := r.requireSymbol(); err != nil {
			return err
		}

		if !r.OrderType.IsMarket() {
			return errors.Newf(errors.ErrCodeInvalidOrderType, "close must use BUY or SELL, got %s", r.OrderType)
		}

		return r.requireVolumeAndPrice()
	case ActionModify:
		if err := r.requireTicket(); err != nil {
			return err
		}

		if err := r.requireSymbol(); err != nil {
			return err
		}

		if r.StopLoss <= 0 && r.TakeProfit <= 0 {
			return errors.New(errors.ErrCodeMissingParameter, "MODIFY requires a stop loss or take profit")
		}

		return nil
	case ActionCancel:
		return r.requireTicket()
	}

	return errors.Newf(errors.ErrCodeInvalidActionKind, "unknown action kind %q", r.Kind)
}

func (r OrderRequest) requireSymbol() error {
	if r.Symbol == "" {
		return errors.Newf(errors.ErrCodeMissingParameter, "%s requires a symbol", r.Kind)
	}

	return nil
}

func (r OrderRequest) requireTicket() error {
	if r.Ticket == 0 {
		return errors.Newf(errors.ErrCodeMissingParameter, "%s requires a ticket", r.Kind)
	}

	return nil
}

func (r OrderRequest) requireVolumeAndPrice() error {
	if r.Volume <= 0 {
		return errors.Newf(errors.ErrCodeInvalidVolume, "volume must be > 0, got %v", r.Volume)
	}

	if r.Price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "price must be > 0, got %v", r.Price)
	}

	return nil
}

// ValidateLevels checks stop < entry < target for buys and the mirror for sells.
// Zero stop or target is treated as unset.
func ValidateLevels(side Side, entry, stopLoss, takeProfit float64) error {
	if side == SideBuy {
		if stopLoss > 0 && stopLoss >= entry {
			return errors.Newf(errors.ErrCodeInvalidStopLoss, "buy stop loss %v must be below entry %v", stopLoss, entry)
		}

		if takeProfit > 0 && takeProfit <= entry {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit, "buy take profit %v must be above entry %v", takeProfit, entry)
		}

		return nil
	}

	if stopLoss > 0 && stopLoss <= entry {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "sell stop loss %v must be above entry %v", stopLoss, entry)
	}

	if takeProfit > 0 && takeProfit >= entry {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "sell take profit %v must be below entry %v", takeProfit, entry)
	}

	return nil
}

// VenueRequest is the wire form of a request as the venue receives it.
type VenueRequest struct {
	Action      TradeAction `json:"action"`
	Symbol      string      `json:"symbol,omitempty"`
	Volume      float64     `json:"volume,omitempty"`
	Type        OrderType   `json:"type"`
	Price       float64     `json:"price,omitempty"`
	StopLoss    float64     `json:"sl"`
	TakeProfit  float64     `json:"tp"`
	Order       uint64      `json:"order,omitempty"`
	Position    uint64      `json:"position,omitempty"`
	Deviation   int         `json:"deviation"`
	Magic       int64       `json:"magic"`
	Comment     string      `json:"comment"`
	TypeTime    TimePolicy  `json:"type_time"`
	TypeFilling FillPolicy  `json:"type_filling"`
}

// OrderResult is produced once per submission and never mutated.
type OrderResult struct {
	RetCode   RetCode `yaml:"retcode" json:"retcode"`
	Deal      uint64  `yaml:"deal" json:"deal"`
	Order     uint64  `yaml:"order" json:"order"`
	Volume    float64 `yaml:"volume" json:"volume"`
	Price     float64 `yaml:"price" json:"price"`
	Bid       float64 `yaml:"bid" json:"bid"`
	Ask       float64 `yaml:"ask" json:"ask"`
	Comment   string  `yaml:"comment" json:"comment"`
	RequestID uint32  `yaml:"request_id" json:"request_id"`
}

// Succeeded reports whether the venue accepted the request.
func (r OrderResult) Succeeded() bool {
	return r.RetCode.IsSuccess()
}
