package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the binding server.
type Metrics struct {
	SessionsOpen    prometheus.Gauge
	Computes        *prometheus.CounterVec // labels: outcome={success,error}
	ComputeDuration prometheus.Histogram
	AttributeErrors *prometheus.CounterVec // labels: kind={unknown,type}
	ProfilesStored  prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vol2bird",
			Name:      "sessions_open",
			Help:      "Binding sessions currently holding an engine handle.",
		}),
		Computes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vol2bird",
			Name:      "computes_total",
			Help:      "Profile computations by outcome.",
		}, []string{"outcome"}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vol2bird",
			Name:      "compute_duration_seconds",
			Help:      "Wall time of a single engine compute step.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AttributeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vol2bird",
			Name:      "attribute_errors_total",
			Help:      "Rejected attribute reads and writes by kind.",
		}, []string{"kind"}),
		ProfilesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vol2bird",
			Name:      "profiles_stored_total",
			Help:      "Profiles written to the archive.",
		}),
	}
}

// NewMetrics creates the binding server metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.SessionsOpen,
		m.Computes,
		m.ComputeDuration,
		m.AttributeErrors,
		m.ProfilesStored,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
