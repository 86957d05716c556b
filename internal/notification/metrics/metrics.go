package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbox delivery.
type Metrics struct {
	Claimed     prometheus.Counter
	Delivered   *prometheus.CounterVec
	Failed      *prometheus.CounterVec
	Exhausted   prometheus.Counter
	BreakerOpen prometheus.Gauge
}

// New creates the notification metrics registered with reg (nil leaves them
// unregistered).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Claimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_notices_claimed_total",
			Help: "Outbox notices claimed for delivery",
		}),
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "misiones_notices_delivered_total",
			Help: "Outbox notices delivered, by kind",
		}, []string{"kind"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "misiones_notices_failed_total",
			Help: "Failed delivery attempts, by kind",
		}, []string{"kind"}),
		Exhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_notices_exhausted_total",
			Help: "Notices that used their last delivery attempt",
		}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "misiones_email_breaker_open",
			Help: "1 while the email circuit breaker is open",
		}),
	}
}

func (m *Metrics) IncrementClaimed(n int) {
	m.Claimed.Add(float64(n))
}

func (m *Metrics) IncrementDelivered(kind string) {
	m.Delivered.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementFailed(kind string) {
	m.Failed.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementExhausted() {
	m.Exhausted.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
