package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for admission, cancellation and promotion.
type Metrics struct {
	Registrations        *prometheus.CounterVec
	Cancellations        *prometheus.CounterVec
	Promotions           prometheus.Counter
	PromotionFailures    prometheus.Counter
	TxRetries            *prometheus.CounterVec
	AdmissionDuration    prometheus.Histogram
	CancellationDuration prometheus.Histogram
}

// New creates the registration metrics registered with reg (nil leaves them
// unregistered).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "misiones_registrations_total",
			Help: "Registrations admitted, by resulting status",
		}, []string{"status"}),
		Cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "misiones_cancellations_total",
			Help: "Registrations cancelled, by status before cancellation",
		}, []string{"prior_status"}),
		Promotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_promotions_total",
			Help: "Waitlisted registrations promoted to confirmed",
		}),
		PromotionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_promotion_failures_total",
			Help: "Promotions attempted after a freed slot that failed and need an operator",
		}),
		TxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "misiones_tx_retries_total",
			Help: "Site transactions retried after a transient storage error",
		}, []string{"operation"}),
		AdmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "misiones_admission_duration_seconds",
			Help:    "Duration of the admission transaction including retries",
			Buckets: durationBuckets,
		}),
		CancellationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "misiones_cancellation_duration_seconds",
			Help:    "Duration of cancel-and-promote including retries",
			Buckets: durationBuckets,
		}),
	}
}

func (m *Metrics) IncrementRegistrations(status string) {
	m.Registrations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementCancellations(priorStatus string) {
	m.Cancellations.WithLabelValues(priorStatus).Inc()
}

func (m *Metrics) IncrementPromotions() {
	m.Promotions.Inc()
}

func (m *Metrics) IncrementPromotionFailures() {
	m.PromotionFailures.Inc()
}

func (m *Metrics) IncrementTxRetries(operation string) {
	m.TxRetries.WithLabelValues(operation).Inc()
}

// ObserveAdmission records the admission latency.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAdmission(start time.Time) {
	m.AdmissionDuration.Observe(time.Since(start).Seconds())
}

// ObserveCancellation records the cancel-and-promote latency.
func (m *Metrics) ObserveCancellation(start time.Time) {
	m.CancellationDuration.Observe(time.Since(start).Seconds())
}
