// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signal outcomes.
const (
	OutcomeBuy            = "buy"
	OutcomeSell           = "sell"
	OutcomeInvalid        = "invalid"
	OutcomeMalformed      = "malformed"
	OutcomePriceError     = "price_error"
	OutcomePersistenceErr = "persistence_error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SignalsTotal      *prometheus.CounterVec
	OrdersRecorded    *prometheus.CounterVec
	PriceLookup       *prometheus.HistogramVec
	StoreOperations   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	JobRuns           *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "trendsignal"
	}
	f := promauto.With(reg)

	return &Metrics{
		SignalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "signals_total",
			Help:      "Webhook signals by outcome",
		}, []string{"outcome"}),
		OrdersRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "recorded_total",
			Help:      "Simulated orders persisted by action",
		}, []string{"action"}),
		PriceLookup: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "lookup_seconds",
			Help:      "Latency of market price lookups",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"source", "status"}),
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Recorder operations by driver, operation and status",
		}, []string{"driver", "op", "status"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "messages_total",
			Help:      "Outbound notifications by status",
		}, []string{"status"}),
		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by job and status",
		}, []string{"job", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSignal counts a processed webhook signal.
func RecordSignal(outcome string) {
	DefaultMetrics.SignalsTotal.WithLabelValues(outcome).Inc()
}

// RecordOrder counts a persisted order.
func RecordOrder(action string) {
	DefaultMetrics.OrdersRecorded.WithLabelValues(action).Inc()
}

// ObservePriceLookup records how long a price fetch took.
func ObservePriceLookup(source string, seconds float64, err error) {
	DefaultMetrics.PriceLookup.WithLabelValues(source, status(err)).Observe(seconds)
}

// RecordStoreOp counts a recorder call.
func RecordStoreOp(driver, op string, err error) {
	DefaultMetrics.StoreOperations.WithLabelValues(driver, op, status(err)).Inc()
}

// RecordNotification counts an outbound message attempt.
func RecordNotification(err error) {
	DefaultMetrics.NotificationsSent.WithLabelValues(status(err)).Inc()
}

// RecordJobRun counts a scheduled job execution.
func RecordJobRun(job string, err error) {
	DefaultMetrics.JobRuns.WithLabelValues(job, status(err)).Inc()
}
