// Package pricing turns point distances from a trade recommendation into
// absolute prices the venue will accept.
package pricing

import (
	"context"
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/internal/utils"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// MarketData is the part of a venue the normalizer reads.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (types.Quote, error)
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)
}

// Request describes an entry in points relative to the current market.
// A zero StopLossPoints or TakeProfitPoints leaves that level unset.
type Request struct {
	Symbol            string
	Side              types.Side
	EntryOffsetPoints float64
	StopLossPoints    float64
	TakeProfitPoints  float64
}

// Levels are absolute prices rounded to the symbol's digits. Zero means unset.
type Levels struct {
	Symbol     string
	Side       types.Side
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Bid        float64
	Ask        float64
	Point      float64
	Digits     int32
	// MinStopPoints is max(stops level, spread + buffer).
	MinStopPoints float64
	// MinTargetPoints is spread + buffer.
	MinTargetPoints float64
}

// Normalizer applies the venue's stop distance and the spread floor to requested levels.
type Normalizer struct {
	market       MarketData
	bufferPoints float64
	logger       *logger.Logger
}

// NewNormalizer reads quotes and symbol rules from market and adds bufferPoints to the spread floor.
func NewNormalizer(market MarketData, bufferPoints float64, log *logger.Logger) *Normalizer {
	return &Normalizer{
		market:       market,
		bufferPoints: bufferPoints,
		logger:       log.Named("pricing"),
	}
}

// BufferPoints returns the safety buffer added to the spread.
func (n *Normalizer) BufferPoints() float64 {
	return n.bufferPoints
}

type snapshot struct {
	quote types.Quote
	info  types.SymbolInfo
}

func (n *Normalizer) snapshot(ctx context.Context, symbol string) (snapshot, error) {
	quote, err := n.market.Quote(ctx, symbol)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeQuoteUnavailable) {
			return snapshot{}, err
		}

		return snapshot{}, errors.Wrapf(errors.ErrCodeQuoteUnavailable, err, "cannot get quote for %s", symbol)
	}

	if quote.Bid <= 0 || quote.Ask <= 0 {
		return snapshot{}, errors.Newf(errors.ErrCodeQuoteUnavailable, "quote for %s has no prices", symbol)
	}

	info, err := n.market.SymbolInfo(ctx, symbol)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSymbolInfoUnavailable) {
			return snapshot{}, err
		}

		return snapshot{}, errors.Wrapf(errors.ErrCodeSymbolInfoUnavailable, err, "cannot get symbol info for %s", symbol)
	}

	if info.Point <= 0 {
		return snapshot{}, errors.Newf(errors.ErrCodeSymbolInfoUnavailable, "symbol info for %s has no point size", symbol)
	}

	return snapshot{quote: quote, info: info}, nil
}

func (n *Normalizer) floors(info types.SymbolInfo) (minStop, minTarget float64) {
	minTarget = float64(info.SpreadPoints) + n.bufferPoints
	minStop = math.Max(float64(info.StopsLevelPoints), minTarget)

	return minStop, minTarget
}

// Normalize computes entry, stop and target for a new order.
//
// Entry is the ask (buy) or bid (sell) moved by EntryOffsetPoints. The stop sits at
// least MinStopPoints from entry and strictly beyond the opposite quote; when it
// would not, it is clamped to bid - MinStopPoints (buy) or ask + MinStopPoints (sell).
// The target sits at least MinTargetPoints from entry.
func (n *Normalizer) Normalize(ctx context.Context, req Request) (Levels, error) {
	snap, err := n.snapshot(ctx, req.Symbol)
	if err != nil {
		return Levels{}, err
	}

	levels := n.baseLevels(req.Symbol, req.Side, snap)

	market := snap.quote.Ask
	if req.Side == types.SideSell {
		market = snap.quote.Bid
	}

	entry := market + req.EntryOffsetPoints*snap.info.Point

	levels.Entry = utils.RoundPrice(entry, snap.info.Digits)
	levels.StopLoss = n.stopLoss(req.Side, entry, req.StopLossPoints, levels, snap)
	levels.TakeProfit = n.takeProfit(req.Side, entry, req.TakeProfitPoints, levels, snap)

	n.logger.Debug("Normalized levels",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("entry", levels.Entry),
		zap.Float64("stop_loss", levels.StopLoss),
		zap.Float64("take_profit", levels.TakeProfit),
		zap.Int("spread_points", snap.info.SpreadPoints),
		zap.Float64("min_stop_points", levels.MinStopPoints),
	)

	return levels, nil
}

// ModifyLevels recomputes stop and target of an open position from its open price.
// A field that is None or not positive keeps the position's current level.
func (n *Normalizer) ModifyLevels(
	ctx context.Context,
	position types.Position,
	stopLossPoints optional.Option[float64],
	takeProfitPoints optional.Option[float64],
) (Levels, error) {
	snap, err := n.snapshot(ctx, position.Symbol)
	if err != nil {
		return Levels{}, err
	}

	levels := n.baseLevels(position.Symbol, position.Side, snap)
	levels.Entry = position.OpenPrice
	levels.StopLoss = position.StopLoss
	levels.TakeProfit = position.TakeProfit

	if points := positive(stopLossPoints); points > 0 {
		levels.StopLoss = n.stopLoss(position.Side, position.OpenPrice, points, levels, snap)
	}

	if points := positive(takeProfitPoints); points > 0 {
		levels.TakeProfit = n.takeProfit(position.Side, position.OpenPrice, points, levels, snap)
	}

	return levels, nil
}

func (n *Normalizer) baseLevels(symbol string, side types.Side, snap snapshot) Levels {
	minStop, minTarget := n.floors(snap.info)

	return Levels{
		Symbol:          symbol,
		Side:            side,
		Entry:           0,
		StopLoss:        0,
		TakeProfit:      0,
		Bid:             snap.quote.Bid,
		Ask:             snap.quote.Ask,
		Point:           snap.info.Point,
		Digits:          snap.info.Digits,
		MinStopPoints:   minStop,
		MinTargetPoints: minTarget,
	}
}

func (n *Normalizer) stopLoss(side types.Side, entry, points float64, levels Levels, snap snapshot) float64 {
	if points <= 0 {
		return 0
	}

	distance := math.Max(points, levels.MinStopPoints) * snap.info.Point
	clampDistance := levels.MinStopPoints * snap.info.Point

	var stop float64

	if side == types.SideBuy {
		stop = entry - distance
		if stop >= snap.quote.Bid {
			stop = snap.quote.Bid - clampDistance
		}
	} else {
		stop = entry + distance
		if stop <= snap.quote.Ask {
			stop = snap.quote.Ask + clampDistance
		}
	}

	if stop <= 0 {
		return 0
	}

	return utils.RoundPrice(stop, snap.info.Digits)
}

func (n *Normalizer) takeProfit(side types.Side, entry, points float64, levels Levels, snap snapshot) float64 {
	if points <= 0 {
		return 0
	}

	distance := math.Max(points, levels.MinTargetPoints) * snap.info.Point

	target := entry + distance
	if side == types.SideSell {
		target = entry - distance
	}

	if target <= 0 {
		return 0
	}

	return utils.RoundPrice(target, snap.info.Digits)
}

func positive(value optional.Option[float64]) float64 {
	if value.IsNone() {
		return 0
	}

	return math.Max(value.Unwrap(), 0)
}
