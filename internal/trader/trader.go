// Package trader wires the venue, annotation store, gateway, executor and
// watcher into one object that owns their lifecycle.
package trader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrade/internal/advisory"
	"github.com/rxtech-lab/argo-autotrade/internal/annotation"
	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/executor"
	"github.com/rxtech-lab/argo-autotrade/internal/gateway"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/metrics"
	"github.com/rxtech-lab/argo-autotrade/internal/notify"
	"github.com/rxtech-lab/argo-autotrade/internal/pricing"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/internal/watcher"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// Advisor produces trade plans.
type Advisor interface {
	Analyze(ctx context.Context, systemPrompt, userPrompt string) (advisory.Response, error)
}

// Trader is the composition root. Everything it holds is created once and
// shared by the decision cadence, the watcher and the ops API.
type Trader struct {
	config     config.Config
	venue      venue.Venue
	store      annotation.Store
	gateway    *gateway.Gateway
	normalizer *pricing.Normalizer
	executor   *executor.Executor
	watcher    *watcher.Watcher
	metrics    *metrics.Metrics
	advisor    Advisor
	logger     *logger.Logger

	now        func() time.Time
	newID      func() string
	retryDelay time.Duration
}

// New wires the components. store, advisor and notifier may be nil.
func New(
	cfg config.Config,
	v venue.Venue,
	store annotation.Store,
	advisor Advisor,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Trader {
	gw := gateway.New(v, store, gateway.Config{
		Magic:     cfg.Trading.Magic,
		Deviation: cfg.Trading.Deviation,
	}, m, log)
	normalizer := pricing.NewNormalizer(v, cfg.Trading.SafetyBufferPoints, log)

	w := watcher.New(v, gw, notifier, m, watcher.Config{
		Enabled:       cfg.Monitoring.Enabled,
		PollInterval:  cfg.Monitoring.PollInterval,
		PriceCacheTTL: cfg.Monitoring.PriceCacheTTL,
		ClosePause:    cfg.Monitoring.ClosePause,
		ErrorBackoff:  cfg.Monitoring.ErrorBackoff,
		StopTimeout:   cfg.Monitoring.StopTimeout,
		Magic:         cfg.Trading.Magic,
	}, log)

	return &Trader{
		config:     cfg,
		venue:      v,
		store:      store,
		gateway:    gw,
		normalizer: normalizer,
		executor:   executor.New(v, normalizer, gw, m, log),
		watcher:    w,
		metrics:    m,
		advisor:    advisor,
		logger:     log.Named("trader"),
		now:        time.Now,
		newID:      uuid.NewString,
		retryDelay: 5 * time.Second,
	}
}

func (t *Trader) Watcher() *watcher.Watcher { return t.watcher }

func (t *Trader) Store() annotation.Store { return t.store }

func (t *Trader) Venue() venue.Venue { return t.venue }

func (t *Trader) Metrics() *metrics.Metrics { return t.metrics }

// Positions lists this system's open positions with the stored rationale in
// place of the venue's truncated comment.
func (t *Trader) Positions(ctx context.Context) ([]types.Position, error) {
	positions, err := t.venue.Positions(ctx, t.config.Trading.Magic)
	if err != nil {
		return nil, err
	}

	for i := range positions {
		if text, ok := t.annotation(ctx, positions[i].Ticket); ok {
			positions[i].Comment = text
		}
	}

	return positions, nil
}

// PendingOrders lists this system's resting orders with their stored rationale.
func (t *Trader) PendingOrders(ctx context.Context) ([]types.PendingOrder, error) {
	orders, err := t.venue.PendingOrders(ctx, t.config.Trading.Magic)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if text, ok := t.annotation(ctx, orders[i].Ticket); ok {
			orders[i].Comment = text
		}
	}

	return orders, nil
}

// annotation returns the stored text for ticket. A lookup failure keeps the venue comment.
func (t *Trader) annotation(ctx context.Context, ticket uint64) (string, bool) {
	if t.store == nil {
		return "", false
	}

	text, err := t.store.Get(ctx, ticket)
	if err != nil {
		t.logger.Warn("Failed to read annotation", zap.Uint64("ticket", ticket), zap.Error(err))

		return "", false
	}

	if text.IsNone() {
		return "", false
	}

	return text.Unwrap(), true
}

// ExecutePlan executes the response's recommendations in order and, when a
// report directory is configured, writes a YAML report. A report write failure
// is returned together with the report; the plan has already been executed.
func (t *Trader) ExecutePlan(ctx context.Context, resp advisory.Response) (types.PlanReport, error) {
	started := t.now()
	outcomes := t.executor.Execute(ctx, resp.Actions())

	report := types.NewPlanReport(t.newID(), t.venue.Name(), started, t.now(), outcomes)
	report.Analysis = resp.Analysis
	report.IntervalReason = resp.IntervalReason
	report.NextCallInterval = t.NextInterval(resp)

	t.logger.Info("Plan executed",
		zap.String("report_id", report.ID),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	if t.config.Report.Dir == "" {
		return report, nil
	}

	path, err := types.WritePlanReport(t.config.Report.Dir, report)
	if err != nil {
		t.logger.Error("Failed to write plan report", zap.String("report_id", report.ID), zap.Error(err))

		return report, err
	}

	t.logger.Debug("Plan report written", zap.String("path", path))

	return report, nil
}

// NextInterval is the suggested interval clamped to the configured bounds,
// or the default interval when the response does not suggest one.
func (t *Trader) NextInterval(resp advisory.Response) time.Duration {
	cfg := t.config.Advisory

	suggested := resp.NextInterval()
	if suggested.IsNone() {
		return cfg.DefaultInterval
	}

	interval := suggested.Unwrap()
	if cfg.MinInterval > 0 && interval < cfg.MinInterval {
		interval = cfg.MinInterval
	}

	if cfg.MaxInterval > 0 && interval > cfg.MaxInterval {
		interval = cfg.MaxInterval
	}

	return interval
}

// Close stops the watcher if it is running and closes the annotation store.
func (t *Trader) Close() error {
	if err := t.watcher.Stop(); err != nil && !errors.HasCode(err, errors.ErrCodeWatcherNotRunning) {
		return err
	}

	if t.store != nil {
		return t.store.Close()
	}

	return nil
}
