package types

import "time"

// Position is an open holding on the venue, reported by the venue.
type Position struct {
	Ticket       uint64    `yaml:"ticket" json:"ticket"`
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Side         Side      `yaml:"side" json:"side"`
	Volume       float64   `yaml:"volume" json:"volume"`
	OpenPrice    float64   `yaml:"open_price" json:"open_price"`
	StopLoss     float64   `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit   float64   `yaml:"take_profit" json:"take_profit"`
	CurrentPrice float64   `yaml:"current_price" json:"current_price"`
	Profit       float64   `yaml:"profit" json:"profit"`
	Magic        int64     `yaml:"magic" json:"magic"`
	Comment      string    `yaml:"comment" json:"comment"`
	OpenTime     time.Time `yaml:"open_time" json:"open_time"`
}

// TakeProfitReached reports whether bid has crossed the position's target.
// A position without a target never triggers.
func (p Position) TakeProfitReached(bid float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}

	if p.Side == SideBuy {
		return bid >= p.TakeProfit
	}

	return bid <= p.TakeProfit
}

// PendingOrder is a resting order on the venue.
type PendingOrder struct {
	Ticket     uint64    `yaml:"ticket" json:"ticket"`
	Symbol     string    `yaml:"symbol" json:"symbol"`
	OrderType  OrderType `yaml:"order_type" json:"order_type"`
	Volume     float64   `yaml:"volume" json:"volume"`
	Price      float64   `yaml:"price" json:"price"`
	StopLoss   float64   `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit float64   `yaml:"take_profit" json:"take_profit"`
	Magic      int64     `yaml:"magic" json:"magic"`
	Comment    string    `yaml:"comment" json:"comment"`
	SetupTime  time.Time `yaml:"setup_time" json:"setup_time"`
}
