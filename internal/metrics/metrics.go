// Package metrics wraps the Prometheus collectors of the portal host. All
// methods are safe to call on a nil *Collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portal"

// Collector owns a private Prometheus registry and the host's metric vectors.
type Collector struct {
	registry *prometheus.Registry

	ManifestFetches    *prometheus.CounterVec
	PluginLoads        *prometheus.CounterVec
	BootDuration       prometheus.Histogram
	SettingsWrites     *prometheus.CounterVec
	LanguageSyncEvents *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		ManifestFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_fetches_total",
			Help:      "Dynamic plugin manifest fetches by result",
		}, []string{"result"}),
		PluginLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_loads_total",
			Help:      "Dynamic plugin load attempts by result",
		}, []string{"result"}),
		BootDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "boot_duration_seconds",
			Help:      "Time from boot start until the shell is ready",
			Buckets:   prometheus.DefBuckets,
		}),
		SettingsWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_settings_writes_total",
			Help:      "User settings writes by bucket and result",
		}, []string{"bucket", "result"}),
		LanguageSyncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "language_sync_events_total",
			Help:      "Language synchronizer events by origin and action",
		}, []string{"origin", "action"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open shell sessions",
		}),
	}
	reg.MustRegister(
		c.ManifestFetches,
		c.PluginLoads,
		c.BootDuration,
		c.SettingsWrites,
		c.LanguageSyncEvents,
		c.ActiveSessions,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ManifestFetched(ok bool) {
	if c == nil {
		return
	}
	c.ManifestFetches.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) PluginLoaded(ok bool) {
	if c == nil {
		return
	}
	c.PluginLoads.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) BootFinished(started time.Time) {
	if c == nil {
		return
	}
	c.BootDuration.Observe(time.Since(started).Seconds())
}

func (c *Collector) SettingsWritten(bucket string, ok bool) {
	if c == nil {
		return
	}
	c.SettingsWrites.WithLabelValues(bucket, result(ok)).Inc()
}

func (c *Collector) LanguageSyncEvent(origin, action string) {
	if c == nil {
		return
	}
	c.LanguageSyncEvents.WithLabelValues(origin, action).Inc()
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.ActiveSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.ActiveSessions.Dec()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
