package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCountsOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe("reports", "load", nil, time.Millisecond)
	m.Observe("reports", "load", errors.New("boom"), time.Millisecond)
	m.Observe("reports", "load", nil, time.Millisecond)
	m.Rejected("reports", "validate")
	m.SetCacheSize("reports", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("reports", "load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("reports", "load", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("reports", "validate", "rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheSize.WithLabelValues("reports")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("x", "y", nil, 0)
		m.Rejected("x", "y")
		m.SetCacheSize("x", 1)
	})
}
