package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the site module.
type Metrics struct {
	SitesCreated       prometheus.Counter
	CapacityChanges    prometheus.Counter
	OccupancyDuration  prometheus.Histogram
	OccupancyCacheHits prometheus.Counter
}

// New creates the site metrics registered with reg (nil leaves them
// unregistered).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SitesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_sites_created_total",
			Help: "Total number of sites created",
		}),
		CapacityChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_site_capacity_changes_total",
			Help: "Total number of site capacity edits",
		}),
		OccupancyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "misiones_occupancy_query_duration_seconds",
			Help:    "Duration of occupancy queries that missed the cache",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		OccupancyCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "misiones_occupancy_cache_hits_total",
			Help: "Occupancy queries served from the in-process cache",
		}),
	}
}

func (m *Metrics) IncrementSitesCreated() {
	m.SitesCreated.Inc()
}

func (m *Metrics) IncrementCapacityChanges() {
	m.CapacityChanges.Inc()
}

// ObserveOccupancy records the duration of an uncached occupancy query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOccupancy(start time.Time) {
	m.OccupancyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementOccupancyCacheHits() {
	m.OccupancyCacheHits.Inc()
}
