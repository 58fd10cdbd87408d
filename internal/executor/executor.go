// Package executor runs the actions of a trade plan one at a time and reports
// an outcome for each of them.
package executor

import (
	"context"
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/gateway"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/metrics"
	"github.com/rxtech-lab/argo-autotrade/internal/pricing"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

const reasonExecuted = "executed"

// Executor executes trade plans against a venue through a Submitter.
type Executor struct {
	venue      venue.Venue
	normalizer *pricing.Normalizer
	submitter  gateway.Submitter
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// New creates an executor that prices OPEN and MODIFY actions with normalizer and submits through submitter.
func New(
	v venue.Venue,
	normalizer *pricing.Normalizer,
	submitter gateway.Submitter,
	m *metrics.Metrics,
	log *logger.Logger,
) *Executor {
	return &Executor{
		venue:      v,
		normalizer: normalizer,
		submitter:  submitter,
		metrics:    m,
		logger:     log.Named("executor"),
	}
}

// Execute runs actions in order and returns one outcome per action.
// A failing action never prevents the following ones from running.
func (e *Executor) Execute(ctx context.Context, actions []types.Action) []types.ActionOutcome {
	outcomes := make([]types.ActionOutcome, 0, len(actions))

	e.logger.Info("Executing trade plan", zap.Int("actions", len(actions)))

	for i, action := range actions {
		outcome := e.executeOne(ctx, action)
		outcomes = append(outcomes, outcome)

		e.metrics.ObservePlanAction(outcome.Action, outcome.Success)

		fields := []zap.Field{
			zap.Int("index", i),
			zap.String("symbol", outcome.Symbol),
			zap.String("action", outcome.Action),
			zap.String("reason", outcome.Reason),
			zap.Uint64("ticket", outcome.Ticket),
		}
		if outcome.Success {
			e.logger.Info("Action succeeded", fields...)
		} else {
			e.logger.Warn("Action failed", fields...)
		}
	}

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}

	e.logger.Info("Trade plan executed", zap.Int("succeeded", succeeded), zap.Int("total", len(outcomes)))

	return outcomes
}

func (e *Executor) executeOne(ctx context.Context, action types.Action) (outcome types.ActionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Action panicked", zap.String("action", action.Label()), zap.Any("panic", r))

			outcome = types.NewFailure(action, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	switch a := action.(type) {
	case types.SkipAction:
		return types.ActionOutcome{
			Symbol:  a.Symbol,
			Action:  a.Label(),
			Success: true,
			Reason:  "skipped non-trading action " + a.Marker,
			Ticket:  0,
			Volume:  0,
			Price:   0,
		}
	case types.InvalidAction:
		return types.NewFailure(a, a.Reason)
	case types.OpenAction:
		return e.open(ctx, a)
	case types.CloseAction:
		return e.close(ctx, a)
	case types.CancelAction:
		return e.cancel(ctx, a)
	case types.ModifyAction:
		return e.modify(ctx, a)
	default:
		return types.NewFailure(action, fmt.Sprintf("unsupported action %q", action.Label()))
	}
}

func (e *Executor) open(ctx context.Context, a types.OpenAction) types.ActionOutcome {
	if err := checkEntryOffset(a); err != nil {
		return types.NewFailure(a, errors.Message(err))
	}

	offset := a.EntryOffsetPoints
	if a.Entry == types.EntryMarket || a.Entry == "" {
		offset = 0
	}

	levels, err := e.normalizer.Normalize(ctx, pricing.Request{
		Symbol:            a.Symbol,
		Side:              a.Side,
		EntryOffsetPoints: offset,
		StopLossPoints:    a.StopLossPoints,
		TakeProfitPoints:  a.TakeProfitPoints,
	})
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	if err := types.ValidateLevels(a.Side, levels.Entry, levels.StopLoss, levels.TakeProfit); err != nil {
		return types.NewFailure(a, errors.Message(err))
	}

	kind := types.ActionOpenBuy
	if a.Side == types.SideSell {
		kind = types.ActionOpenSell
	}

	orderType := a.Entry.OrderType(a.Side)
	fill := types.FillPolicyIOC
	if orderType.IsPending() {
		fill = types.FillPolicyReturn
	}

	result, err := e.submitter.Submit(ctx, types.OrderRequest{
		Kind:       kind,
		Symbol:     a.Symbol,
		Volume:     a.Volume,
		OrderType:  orderType,
		Price:      levels.Entry,
		StopLoss:   levels.StopLoss,
		TakeProfit: levels.TakeProfit,
		Ticket:     0,
		Deviation:  0,
		TimePolicy: types.TimePolicyGTC,
		FillPolicy: fill,
		Comment:    types.JoinRationale(a.Comment, a.Reasoning),
	})
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	return succeeded(a, result.Order, result)
}

func (e *Executor) close(ctx context.Context, a types.CloseAction) types.ActionOutcome {
	if a.Ticket == 0 {
		return types.NewFailure(a, "missing order_id")
	}

	pos, err := e.venue.PositionByTicket(ctx, a.Ticket)
	if err != nil {
		return types.NewFailure(a, describe(e.explainMissingPosition(ctx, a.Ticket, err, "not position")))
	}

	quote, err := e.venue.Quote(ctx, pos.Symbol)
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	price := quote.Bid
	if pos.Side == types.SideSell {
		price = quote.Ask
	}

	comment := types.JoinRationale(a.Comment, a.Reasoning)
	if comment == "" {
		comment = fmt.Sprintf("close #%d", pos.Ticket)
	}

	result, err := e.submitter.Submit(ctx, types.OrderRequest{
		Kind:       types.ActionClose,
		Symbol:     pos.Symbol,
		Volume:     pos.Volume,
		OrderType:  pos.Side.Opposite().MarketOrderType(),
		Price:      price,
		StopLoss:   0,
		TakeProfit: 0,
		Ticket:     pos.Ticket,
		Deviation:  0,
		TimePolicy: types.TimePolicyGTC,
		FillPolicy: types.FillPolicyIOC,
		Comment:    comment,
	})
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	return succeeded(a, pos.Ticket, result)
}

func (e *Executor) cancel(ctx context.Context, a types.CancelAction) types.ActionOutcome {
	if a.Ticket == 0 {
		return types.NewFailure(a, "missing order_id")
	}

	order, err := e.venue.PendingOrderByTicket(ctx, a.Ticket)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodePendingOrderNotFound) {
			return types.NewFailure(a, describe(err))
		}

		if _, posErr := e.venue.PositionByTicket(ctx, a.Ticket); posErr == nil {
			return types.NewFailure(a, fmt.Sprintf("order_id %d resolves to open position, not pending order; use CLOSE", a.Ticket))
		}

		return types.NewFailure(a, fmt.Sprintf("pending order %d not found", a.Ticket))
	}

	result, err := e.submitter.Submit(ctx, types.OrderRequest{
		Kind:       types.ActionCancel,
		Symbol:     order.Symbol,
		Volume:     0,
		OrderType:  order.OrderType,
		Price:      0,
		StopLoss:   0,
		TakeProfit: 0,
		Ticket:     order.Ticket,
		Deviation:  0,
		TimePolicy: types.TimePolicyGTC,
		FillPolicy: types.FillPolicyReturn,
		Comment:    types.JoinRationale(a.Comment, a.Reasoning),
	})
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	return succeeded(a, order.Ticket, result)
}

func (e *Executor) modify(ctx context.Context, a types.ModifyAction) types.ActionOutcome {
	if a.Ticket == 0 {
		return types.NewFailure(a, "missing order_id")
	}

	if !requested(a.StopLossPoints) && !requested(a.TakeProfitPoints) {
		return types.NewFailure(a, "nothing to modify: neither stop_loss_points nor take_profit_points is set")
	}

	pos, err := e.venue.PositionByTicket(ctx, a.Ticket)
	if err != nil {
		return types.NewFailure(a, describe(e.explainMissingPosition(ctx, a.Ticket, err, "use CANCEL")))
	}

	levels, err := e.normalizer.ModifyLevels(ctx, pos, a.StopLossPoints, a.TakeProfitPoints)
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	comment := types.JoinRationale(a.Comment, a.Reasoning)
	if comment == "" {
		comment = fmt.Sprintf("modify #%d", pos.Ticket)
	}

	result, err := e.submitter.Submit(ctx, types.OrderRequest{
		Kind:       types.ActionModify,
		Symbol:     pos.Symbol,
		Volume:     0,
		OrderType:  pos.Side.MarketOrderType(),
		Price:      0,
		StopLoss:   levels.StopLoss,
		TakeProfit: levels.TakeProfit,
		Ticket:     pos.Ticket,
		Deviation:  0,
		TimePolicy: types.TimePolicyGTC,
		FillPolicy: types.FillPolicyIOC,
		Comment:    comment,
	})
	if err != nil {
		return types.NewFailure(a, describe(err))
	}

	return succeeded(a, pos.Ticket, result)
}

// explainMissingPosition turns a failed position lookup into a ticket-kind error
// when the ticket belongs to a pending order.
func (e *Executor) explainMissingPosition(ctx context.Context, ticket uint64, err error, hint string) error {
	if !errors.HasCode(err, errors.ErrCodePositionNotFound) {
		return err
	}

	if _, orderErr := e.venue.PendingOrderByTicket(ctx, ticket); orderErr == nil {
		return errors.Newf(errors.ErrCodeTicketKindMismatch, "order_id %d resolves to pending order, %s", ticket, hint)
	}

	return errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", ticket)
}

// checkEntryOffset requires pending entries to sit on the correct side of the market:
// buy limit and sell stop below, buy stop and sell limit above.
func checkEntryOffset(a types.OpenAction) error {
	if a.Entry != types.EntryLimit && a.Entry != types.EntryStop {
		return nil
	}

	if a.EntryOffsetPoints == 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "%s %s order requires a non-zero entry_offset_points", a.Side, a.Entry)
	}

	below := (a.Side == types.SideBuy) == (a.Entry == types.EntryLimit)
	if below && a.EntryOffsetPoints > 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice,
			"%s %s entry must be below the market, got entry_offset_points %v", a.Side, a.Entry, a.EntryOffsetPoints)
	}

	if !below && a.EntryOffsetPoints < 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice,
			"%s %s entry must be above the market, got entry_offset_points %v", a.Side, a.Entry, a.EntryOffsetPoints)
	}

	return nil
}

func requested(points optional.Option[float64]) bool {
	return points.IsSome() && points.Unwrap() > 0
}

func succeeded(action types.Action, ticket uint64, result types.OrderResult) types.ActionOutcome {
	return types.ActionOutcome{
		Symbol:  action.Instrument(),
		Action:  action.Label(),
		Success: true,
		Reason:  reasonExecuted,
		Ticket:  ticket,
		Volume:  result.Volume,
		Price:   result.Price,
	}
}

func describe(err error) string {
	if rejection, ok := gateway.AsRejection(err); ok {
		return fmt.Sprintf("rejected by venue (%s, %s): %s", rejection.Class, rejection.RetCode, rejection.Message)
	}

	return errors.Message(err)
}
