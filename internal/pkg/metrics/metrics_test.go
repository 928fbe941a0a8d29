package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch("ok", 20*time.Millisecond)
	m.ObserveFetch("timeout", 10*time.Second)
	m.ObserveFetch("ok", 30*time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.IncBoundaryFault("users-data")
	m.SetViewSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BoundaryFaults.WithLabelValues("users-data")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ViewSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveFetch("ok", time.Second)
		m.ObserveCache(true)
		m.IncBoundaryFault("default")
		m.SetViewSessions(1)
	})
}
