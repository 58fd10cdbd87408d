// Package metrics exposes Prometheus collectors for order flow and the take-profit watcher.
//
//   - autotrade_order_submissions_total{action,result}: gateway submissions (result: accepted|rejected|invalid|error)
//   - autotrade_order_rejections_total{class}:          broker rejections by classification
//   - autotrade_watcher_ticks_total:                    completed watcher iterations
//   - autotrade_watcher_closes_total{result}:           take-profit closes (result: closed|failed)
//   - autotrade_watcher_faults_total:                   iterations that ended in a recovered fault
//   - autotrade_plan_actions_total{action,result}:      executed plan actions (result: success|failure)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OrderSubmissions *prometheus.CounterVec
	OrderRejections  *prometheus.CounterVec
	WatcherTicks     prometheus.Counter
	WatcherCloses    *prometheus.CounterVec
	WatcherFaults    prometheus.Counter
	PlanActions      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrderSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_order_submissions_total",
				Help: "Order submissions by action and result",
			},
			[]string{"action", "result"},
		),
		OrderRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_order_rejections_total",
				Help: "Broker rejections by classification",
			},
			[]string{"class"},
		),
		WatcherTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autotrade_watcher_ticks_total",
				Help: "Completed take-profit watcher iterations",
			},
		),
		WatcherCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_watcher_closes_total",
				Help: "Take-profit close attempts by result",
			},
			[]string{"result"},
		),
		WatcherFaults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autotrade_watcher_faults_total",
				Help: "Watcher iterations that ended in a recovered fault",
			},
		),
		PlanActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_plan_actions_total",
				Help: "Executed plan actions by action and result",
			},
			[]string{"action", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrderSubmissions,
			m.OrderRejections,
			m.WatcherTicks,
			m.WatcherCloses,
			m.WatcherFaults,
			m.PlanActions,
		)
	}

	return m
}

func (m *Metrics) ObserveSubmission(action, result string) {
	if m == nil {
		return
	}
	m.OrderSubmissions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveRejection(class string) {
	if m == nil {
		return
	}
	m.OrderRejections.WithLabelValues(class).Inc()
}

func (m *Metrics) ObserveTick() {
	if m == nil {
		return
	}
	m.WatcherTicks.Inc()
}

func (m *Metrics) ObserveClose(ok bool) {
	if m == nil {
		return
	}

	result := "closed"
	if !ok {
		result = "failed"
	}
	m.WatcherCloses.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveFault() {
	if m == nil {
		return
	}
	m.WatcherFaults.Inc()
}

func (m *Metrics) ObservePlanAction(action string, success bool) {
	if m == nil {
		return
	}

	result := "success"
	if !success {
		result = "failure"
	}
	m.PlanActions.WithLabelValues(action, result).Inc()
}
