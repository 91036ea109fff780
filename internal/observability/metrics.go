// Package observability records per-run Prometheus metrics for the textfile collector.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "airq"

// Metrics holds the gauges and counters for one pipeline run.
type Metrics struct {
	Registry *prometheus.Registry

	Cities          prometheus.Gauge
	PM25Resolutions *prometheus.CounterVec // labels: source={live,cache,fallback,missing}
	PhaseDuration   *prometheus.GaugeVec   // labels: phase
	SpatialOutcome  *prometheus.GaugeVec   // labels: outcome
	TRIFacilities   prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	LastRunUnix     prometheus.Gauge
}

// NewMetrics creates Metrics registered on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cities",
			Help:      "Number of configured cities in the run.",
		}),
		PM25Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pm25_resolutions_total",
			Help:      "Cities resolved per PM2.5 source.",
		}, []string{"source"}),
		PhaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each pipeline phase.",
		}, []string{"phase"}),
		SpatialOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spatial_outcome",
			Help:      "1 for the outcome of the facility join in the last run.",
		}, []string{"outcome"}),
		TRIFacilities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tri_facilities_matched",
			Help:      "Facilities counted within any configured city.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run wrote every artifact.",
		}),
		LastRunUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.Registry.MustRegister(
		m.Cities,
		m.PM25Resolutions,
		m.PhaseDuration,
		m.SpatialOutcome,
		m.TRIFacilities,
		m.LastRunSuccess,
		m.LastRunUnix,
	)
	return m
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return eris.Wrapf(err, "observability: write textfile %s", path)
	}
	return nil
}
