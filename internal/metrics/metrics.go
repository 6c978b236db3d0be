package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records facade traffic. A nil *Metrics records nothing.
type Metrics struct {
	// Remote calls by family, operation and outcome ("ok", "error", "rejected")
	Requests *prometheus.CounterVec

	// Remote call latency by family and operation
	Latency *prometheus.HistogramVec

	// Items held in each family's cache after a change
	CacheSize *prometheus.GaugeVec
}

// New registers facade metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suivi_facade_requests_total",
			Help: "Facade operations by family, operation and outcome",
		}, []string{"family", "op", "outcome"}),

		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "suivi_facade_request_duration_seconds",
			Help:    "Duration of remote calls issued by facades",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"family", "op"}),

		CacheSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "suivi_facade_cache_items",
			Help: "Items currently cached per family",
		}, []string{"family"}),
	}
}

// Observe records one remote call.
func (m *Metrics) Observe(family, op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Requests.WithLabelValues(family, op, outcome).Inc()
	m.Latency.WithLabelValues(family, op).Observe(d.Seconds())
}

// Rejected records an operation refused before any request was issued.
func (m *Metrics) Rejected(family, op string) {
	if m != nil {
		m.Requests.WithLabelValues(family, op, "rejected").Inc()
	}
}

func (m *Metrics) SetCacheSize(family string, n int) {
	if m != nil {
		m.CacheSize.WithLabelValues(family).Set(float64(n))
	}
}
