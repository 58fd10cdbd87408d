// Package venue abstracts the brokerage that holds positions and executes orders.
//
// Implementations:
//   - PaperVenue: in-memory simulator with MetaTrader 5 return codes
//   - BridgeVenue: JSON over HTTP to a MetaTrader 5 sidecar process
//   - BinanceVenue: Binance spot, where balances stand in for positions
package venue

import (
	"context"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
)

// AllMagic lists positions and orders regardless of their tag.
const AllMagic int64 = -1

// Venue is the brokerage surface the trading components use.
//
// Send returns an error only when the request could not be delivered or answered.
// A broker rejection is a successful call whose result carries a non-success RetCode.
type Venue interface {
	// Name identifies the venue in logs.
	Name() string
	// Positions lists open positions tagged with magic, or all when magic is AllMagic.
	Positions(ctx context.Context, magic int64) ([]types.Position, error)
	// PositionByTicket returns ErrCodePositionNotFound when no open position has the ticket.
	PositionByTicket(ctx context.Context, ticket uint64) (types.Position, error)
	// PendingOrders lists resting orders tagged with magic, or all when magic is AllMagic.
	PendingOrders(ctx context.Context, magic int64) ([]types.PendingOrder, error)
	// PendingOrderByTicket returns ErrCodePendingOrderNotFound when no resting order has the ticket.
	PendingOrderByTicket(ctx context.Context, ticket uint64) (types.PendingOrder, error)
	// Quote returns ErrCodeQuoteUnavailable when the symbol has no current tick.
	Quote(ctx context.Context, symbol string) (types.Quote, error)
	// SymbolInfo returns ErrCodeSymbolInfoUnavailable for unknown symbols.
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)
	Send(ctx context.Context, req types.VenueRequest) (types.OrderResult, error)
}

func matchesMagic(filter, magic int64) bool {
	return filter == AllMagic || filter == magic
}
