// Package watcher closes positions whose take-profit level has been crossed.
//
// The venue's own take-profit handling is not relied on: a background loop polls
// the positions tagged with the configured magic number, compares each target with
// the current bid and closes crossed positions at market through the gateway.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/gateway"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/metrics"
	"github.com/rxtech-lab/argo-autotrade/internal/notify"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// Config tunes the watcher loop. Magic selects the positions it guards.
type Config struct {
	Enabled       bool
	PollInterval  time.Duration
	PriceCacheTTL time.Duration
	// ClosePause replaces PollInterval after a tick that closed at least one position.
	ClosePause time.Duration
	// ErrorBackoff replaces PollInterval after a tick that panicked.
	ErrorBackoff time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration
	Magic       int64
}

// Status is a snapshot for the operations surface.
type Status struct {
	Running       bool          `json:"running" yaml:"running"`
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval"`
	CachedSymbols int           `json:"cached_symbols" yaml:"cached_symbols"`
	TaskAlive     bool          `json:"task_alive" yaml:"task_alive"`
}

// TickReport summarises one iteration.
type TickReport struct {
	Disabled  bool
	Positions int
	Triggered int
	Closed    int
}

// Watcher is the take-profit watchdog. Start and Stop may be called repeatedly.
type Watcher struct {
	venue     venue.Venue
	submitter gateway.Submitter
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *logger.Logger
	config    Config
	cache     *QuoteCache
	enabled   atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	closedMu sync.Mutex
	// closed holds tickets this watcher closed that may still appear in a stale listing.
	closed map[uint64]struct{}
}

// New creates a stopped watcher. notifier may be nil.
func New(
	v venue.Venue,
	submitter gateway.Submitter,
	notifier notify.Notifier,
	m *metrics.Metrics,
	cfg Config,
	log *logger.Logger,
) *Watcher {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	w := &Watcher{
		venue:     v,
		submitter: submitter,
		notifier:  notifier,
		metrics:   m,
		logger:    log.Named("watcher"),
		config:    cfg,
		cache:     NewQuoteCache(cfg.PriceCacheTTL),
		enabled:   atomic.Bool{},
		mu:        sync.Mutex{},
		running:   false,
		cancel:    nil,
		done:      nil,
		closedMu:  sync.Mutex{},
		closed:    make(map[uint64]struct{}),
	}
	w.enabled.Store(cfg.Enabled)

	return w
}

// Start launches the background loop. It returns ErrCodeWatcherAlreadyRunning if
// the loop is already active. The loop stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running && !isClosed(w.done) {
		return errors.New(errors.ErrCodeWatcherAlreadyRunning, "take-profit watcher is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.running = true
	w.cancel = cancel
	w.done = done

	go w.loop(loopCtx, done)

	w.logger.Info("Take-profit watcher started",
		zap.Bool("enabled", w.enabled.Load()),
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int64("magic", w.config.Magic),
	)

	return nil
}

// Stop cancels the loop and waits up to StopTimeout for it to exit. A loop that
// does not exit in time is logged and abandoned.
func (w *Watcher) Stop() error {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()

		return errors.New(errors.ErrCodeWatcherNotRunning, "take-profit watcher is not running")
	}

	w.running = false
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		w.logger.Info("Take-profit watcher stopped")
	case <-time.After(w.config.StopTimeout):
		w.logger.Warn("Take-profit watcher did not stop in time", zap.Duration("timeout", w.config.StopTimeout))
	}

	return nil
}

// SetEnabled toggles monitoring without stopping the loop. A disabled loop makes no venue calls.
func (w *Watcher) SetEnabled(enabled bool) {
	previous := w.enabled.Swap(enabled)
	if previous != enabled {
		w.logger.Info("Take-profit monitoring toggled", zap.Bool("enabled", enabled))
	}
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	running := w.running
	done := w.done
	w.mu.Unlock()

	alive := done != nil && !isClosed(done)

	return Status{
		Running:       running && alive,
		Enabled:       w.enabled.Load(),
		PollInterval:  w.config.PollInterval,
		CachedSymbols: w.cache.Len(),
		TaskAlive:     alive,
	}
}

func isClosed(done chan struct{}) bool {
	if done == nil {
		return true
	}

	select {
	case <-done:
		return true
	default:
		return false
	}
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}

		timer.Reset(w.iterate(ctx))
	}
}

// iterate runs one tick and returns the pause before the next one.
func (w *Watcher) iterate(ctx context.Context) (pause time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.ObserveFault()
			w.logger.Error("Take-profit watcher iteration panicked",
				zap.Any("panic", r),
				zap.Duration("backoff", w.config.ErrorBackoff),
			)

			pause = w.config.ErrorBackoff
		}
	}()

	report := w.Tick(ctx)
	if report.Closed > 0 {
		return w.config.ClosePause
	}

	return w.config.PollInterval
}

// Tick performs one watcher iteration. Failures are logged and never returned.
func (w *Watcher) Tick(ctx context.Context) TickReport {
	report := TickReport{Disabled: false, Positions: 0, Triggered: 0, Closed: 0}

	if !w.enabled.Load() {
		report.Disabled = true

		return report
	}

	defer w.metrics.ObserveTick()

	positions, err := w.venue.Positions(ctx, w.config.Magic)
	if err != nil {
		w.logger.Warn("Failed to list positions", zap.Error(err))

		return report
	}

	report.Positions = len(positions)
	w.pruneClosed(positions)

	if len(positions) == 0 {
		w.cache.Clear()

		return report
	}

	for _, pos := range positions {
		if ctx.Err() != nil {
			return report
		}

		if pos.TakeProfit <= 0 || w.wasClosed(pos.Ticket) {
			continue
		}

		quote, err := w.cache.GetOrRefresh(ctx, pos.Symbol, w.venue.Quote)
		if err != nil {
			w.logger.Warn("Failed to get quote, skipping position this tick",
				zap.Uint64("ticket", pos.Ticket),
				zap.String("symbol", pos.Symbol),
				zap.Error(err),
			)

			continue
		}

		if !pos.TakeProfitReached(quote.Bid) {
			continue
		}

		report.Triggered++

		w.logger.Info("Take profit reached",
			zap.Uint64("ticket", pos.Ticket),
			zap.String("symbol", pos.Symbol),
			zap.String("side", string(pos.Side)),
			zap.Float64("take_profit", pos.TakeProfit),
			zap.Float64("bid", quote.Bid),
		)

		if w.closePosition(ctx, pos, quote) {
			report.Closed++
		}
	}

	return report
}

func (w *Watcher) closePosition(ctx context.Context, pos types.Position, cached types.Quote) bool {
	quote, err := w.venue.Quote(ctx, pos.Symbol)
	if err != nil {
		w.logger.Warn("Fresh quote unavailable, closing at cached quote", zap.String("symbol", pos.Symbol), zap.Error(err))

		quote = cached
	} else {
		w.cache.Put(quote)
	}

	price := quote.Bid
	if pos.Side == types.SideSell {
		price = quote.Ask
	}

	req := types.OrderRequest{
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
		Comment:    fmt.Sprintf("TP hit #%d at %g", pos.Ticket, pos.TakeProfit),
	}

	result, err := w.submitter.Submit(ctx, req)
	if err != nil {
		w.metrics.ObserveClose(false)

		if rejection, ok := gateway.AsRejection(err); ok && rejection.RetCode == types.RetCodePositionClosed {
			w.markClosed(pos.Ticket)
		}

		w.logger.Error("Failed to close position at take profit",
			zap.Uint64("ticket", pos.Ticket),
			zap.String("symbol", pos.Symbol),
			zap.Error(err),
		)

		return false
	}

	w.markClosed(pos.Ticket)
	w.metrics.ObserveClose(true)
	w.logger.Info("Closed position at take profit",
		zap.Uint64("ticket", pos.Ticket),
		zap.String("symbol", pos.Symbol),
		zap.Float64("price", result.Price),
		zap.Uint64("order", result.Order),
	)

	if err := w.notifier.Notify(ctx, notify.TakeProfitClosed(pos, result)); err != nil {
		w.logger.Warn("Failed to send close notification", zap.Error(err))
	}

	return true
}

func (w *Watcher) markClosed(ticket uint64) {
	w.closedMu.Lock()
	defer w.closedMu.Unlock()

	w.closed[ticket] = struct{}{}
}

func (w *Watcher) wasClosed(ticket uint64) bool {
	w.closedMu.Lock()
	defer w.closedMu.Unlock()

	_, ok := w.closed[ticket]

	return ok
}

// pruneClosed forgets closed tickets that no longer appear in the listing.
func (w *Watcher) pruneClosed(positions []types.Position) {
	w.closedMu.Lock()
	defer w.closedMu.Unlock()

	if len(w.closed) == 0 {
		return
	}

	listed := make(map[uint64]struct{}, len(positions))
	for _, pos := range positions {
		listed[pos.Ticket] = struct{}{}
	}

	for ticket := range w.closed {
		if _, ok := listed[ticket]; !ok {
			delete(w.closed, ticket)
		}
	}
}
