package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Plugin kinds used as metric labels
const (
	PluginKindEngine     = "engine"
	PluginKindSwitchType = "switch_type"
)

// Metrics holds the Prometheus metrics of the plugin loader. A nil *Metrics
// records nothing.
type Metrics struct {
	PluginsLoadedTotal      *prometheus.CounterVec
	PluginLoadFailuresTotal *prometheus.CounterVec
	PluginLoadDuration      *prometheus.HistogramVec
	IsolationContextsTotal  prometheus.Counter
	RegisteredPlugins       *prometheus.GaugeVec
	LoadCompletedTimestamp  prometheus.Gauge
}

// NewMetrics creates and registers the loader metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		PluginsLoadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switcher_plugins_loaded_total",
				Help: "Total number of plugins activated successfully",
			},
			[]string{"kind"},
		),
		PluginLoadFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switcher_plugin_load_failures_total",
				Help: "Total number of plugins that failed to load",
			},
			[]string{"kind", "reason"},
		),
		PluginLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switcher_plugin_load_duration_seconds",
				Help:    "Time spent loading a single plugin",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"kind"},
		),
		IsolationContextsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "switcher_isolation_contexts_total",
				Help: "Total number of plugins activated inside an isolation context",
			},
		),
		RegisteredPlugins: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "switcher_registered_plugins",
				Help: "Number of plugins in the registries after loading",
			},
			[]string{"kind"},
		),
		LoadCompletedTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "switcher_load_completed_timestamp_seconds",
				Help: "Unix time at which plugin loading completed successfully",
			},
		),
	}

	registry.MustRegister(
		m.PluginsLoadedTotal,
		m.PluginLoadFailuresTotal,
		m.PluginLoadDuration,
		m.IsolationContextsTotal,
		m.RegisteredPlugins,
		m.LoadCompletedTimestamp,
	)

	return m
}

// RecordPluginLoad records the outcome of loading one plugin. reason is the
// failure classification and is ignored when err is nil.
func (m *Metrics) RecordPluginLoad(kind string, duration time.Duration, err error, reason fmt.Stringer) {
	if m == nil {
		return
	}

	m.PluginLoadDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		label := "unknown"
		if reason != nil {
			label = reason.String()
		}
		m.PluginLoadFailuresTotal.WithLabelValues(kind, label).Inc()
		return
	}
	m.PluginsLoadedTotal.WithLabelValues(kind).Inc()
}

// RecordIsolation counts an activation performed inside an isolation context
func (m *Metrics) RecordIsolation() {
	if m == nil {
		return
	}
	m.IsolationContextsTotal.Inc()
}

// RecordLoadCompleted records the registry sizes after a successful load
func (m *Metrics) RecordLoadCompleted(engines, switchTypes int, at time.Time) {
	if m == nil {
		return
	}
	m.RegisteredPlugins.WithLabelValues(PluginKindEngine).Set(float64(engines))
	m.RegisteredPlugins.WithLabelValues(PluginKindSwitchType).Set(float64(switchTypes))
	m.LoadCompletedTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics gathered by g to path in the Prometheus
// text format, for pickup by a node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
