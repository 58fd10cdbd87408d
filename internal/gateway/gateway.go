// Package gateway validates order requests, sends them to the venue and
// records the full rationale once the venue accepts them.
package gateway

import (
	"context"

	"github.com/rxtech-lab/argo-autotrade/internal/annotation"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/metrics"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// Submitter sends a single order request.
//
// A validation failure returns a 1xx coded error before anything is sent. A venue
// rejection returns the populated result together with a *RejectionError. The
// submitter never retries.
type Submitter interface {
	Submit(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
}

// Config holds the values stamped on every request.
type Config struct {
	Magic     int64
	Deviation int
}

// Gateway is the Submitter backed by a venue and an annotation store.
type Gateway struct {
	venue   venue.Venue
	store   annotation.Store
	config  Config
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New creates a gateway. store may be nil, in which case nothing is annotated.
func New(v venue.Venue, store annotation.Store, cfg Config, m *metrics.Metrics, log *logger.Logger) *Gateway {
	return &Gateway{
		venue:   v,
		store:   store,
		config:  cfg,
		metrics: m,
		logger:  log.Named("gateway"),
	}
}

func (g *Gateway) Submit(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	action := string(req.Kind)

	if err := req.Validate(); err != nil {
		g.metrics.ObserveSubmission(action, "invalid")
		g.logger.Warn("Rejected invalid order request",
			zap.String("kind", action),
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)

		return types.OrderResult{}, err
	}

	venueReq := g.BuildVenueRequest(req)

	g.logger.Info("Sending order",
		zap.String("kind", action),
		zap.Stringer("action", venueReq.Action),
		zap.String("symbol", venueReq.Symbol),
		zap.Stringer("type", venueReq.Type),
		zap.Float64("volume", venueReq.Volume),
		zap.Float64("price", venueReq.Price),
		zap.Float64("sl", venueReq.StopLoss),
		zap.Float64("tp", venueReq.TakeProfit),
		zap.Uint64("position", venueReq.Position),
		zap.Uint64("order", venueReq.Order),
	)

	result, err := g.venue.Send(ctx, venueReq)
	if err != nil {
		g.metrics.ObserveSubmission(action, "error")

		if errors.GetCode(err) == errors.ErrCodeUnknown {
			err = errors.Wrapf(errors.ErrCodeVenueUnavailable, err, "failed to send %s order for %s", action, req.Symbol)
		}

		g.logger.Error("Order send failed", zap.String("kind", action), zap.String("symbol", req.Symbol), zap.Error(err))

		return types.OrderResult{}, err
	}

	if !result.Succeeded() {
		rejection := &RejectionError{
			Class:   Classify(result.RetCode),
			RetCode: result.RetCode,
			Message: result.Comment,
		}

		g.metrics.ObserveSubmission(action, "rejected")
		g.metrics.ObserveRejection(string(rejection.Class))
		g.logger.Warn("Order rejected by venue",
			zap.String("kind", action),
			zap.String("symbol", req.Symbol),
			zap.Stringer("retcode", result.RetCode),
			zap.String("class", string(rejection.Class)),
			zap.String("message", result.Comment),
		)

		return result, rejection
	}

	g.metrics.ObserveSubmission(action, "accepted")
	g.logger.Info("Order accepted",
		zap.String("kind", action),
		zap.String("symbol", req.Symbol),
		zap.Stringer("retcode", result.RetCode),
		zap.Uint64("order", result.Order),
		zap.Uint64("deal", result.Deal),
		zap.Float64("price", result.Price),
	)

	g.annotate(ctx, result.Order, req.Comment)

	return result, nil
}

// annotate stores the full comment after the venue accepted the order.
// A storage failure is logged only; the order already exists on the venue.
func (g *Gateway) annotate(ctx context.Context, ticket uint64, text string) {
	if g.store == nil || ticket == 0 || text == "" {
		return
	}

	if err := g.store.Put(ctx, ticket, text); err != nil {
		g.logger.Error("Failed to store annotation", zap.Uint64("ticket", ticket), zap.Error(err))
	}
}

// BuildVenueRequest translates a validated request into the venue's wire form.
func (g *Gateway) BuildVenueRequest(req types.OrderRequest) types.VenueRequest {
	deviation := req.Deviation
	if deviation == 0 {
		deviation = g.config.Deviation
	}

	out := types.VenueRequest{
		Action:      req.TradeAction(),
		Symbol:      req.Symbol,
		Volume:      req.Volume,
		Type:        req.OrderType,
		Price:       req.Price,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		Order:       0,
		Position:    0,
		Deviation:   deviation,
		Magic:       g.config.Magic,
		Comment:     SanitizeComment(req.Comment),
		TypeTime:    req.TimePolicy,
		TypeFilling: req.FillPolicy,
	}

	switch req.Kind {
	case types.ActionClose:
		out.Position = req.Ticket
		out.StopLoss = 0
		out.TakeProfit = 0
	case types.ActionModify:
		out.Position = req.Ticket
		out.Volume = 0
		out.Price = 0
	case types.ActionCancel:
		out.Order = req.Ticket
		out.Volume = 0
		out.Price = 0
		out.StopLoss = 0
		out.TakeProfit = 0
	case types.ActionOpenBuy, types.ActionOpenSell:
	}

	return out
}
