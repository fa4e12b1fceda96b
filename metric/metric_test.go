package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveJob("completed")
	m.ObserveJob("completed")
	m.ObserveJob("failed")
	m.ObserveTask(ResultRendered, 0.05)
	m.ObserveTask(ResultCacheHit, 0)
	m.SetCacheEntries(3)
	m.ObserveWatchPass(PassIncremental)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues(ResultRendered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues(ResultCacheHit)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cacheEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.watchPassesTotal.WithLabelValues(PassIncremental)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveJob("completed")
		m.ObserveTask(ResultFailed, 0)
		m.SetCacheEntries(1)
		m.ObserveWatchPass(PassFull)
	})
}
