package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_FreshRegistry(t *testing.T) {
	// Two instances must not collide.
	a, b := NewMetrics(), NewMetrics()
	a.PM25Resolutions.WithLabelValues("live").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PM25Resolutions.WithLabelValues("live")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PM25Resolutions.WithLabelValues("live")))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Cities.Set(7)
	m.PM25Resolutions.WithLabelValues("fallback").Add(2)
	m.SpatialOutcome.WithLabelValues("joined").Set(1)

	path := filepath.Join(t.TempDir(), "airq.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "airq_cities 7")
	assert.Contains(t, out, `airq_pm25_resolutions_total{source="fallback"} 2`)
	assert.Contains(t, out, `airq_spatial_outcome{outcome="joined"} 1`)
}

func TestWriteTextfile_BadPath(t *testing.T) {
	err := NewMetrics().WriteTextfile(filepath.Join(t.TempDir(), "missing", "airq.prom"))
	assert.Error(t, err)
}
