package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for monitor self-observation.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Cycle metrics
	CycleDuration prometheus.Histogram
	CyclesTotal   *prometheus.CounterVec

	// Collection metrics
	CollectDuration  prometheus.Histogram
	CollectTotal     *prometheus.CounterVec
	EnricherDuration *prometheus.HistogramVec

	// Alert metrics
	AlertsFiredTotal     *prometheus.CounterVec
	AlertsSuppressed     prometheus.Counter
	SinkDeliveryFailures *prometheus.CounterVec

	// Resilience metrics
	Mode                prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
	ProbesTotal         *prometheus.CounterVec

	// History metrics
	HistorySnapshots *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kcloud_monitor_cycle_duration_seconds",
			Help:    "Duration of full collection cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcloud_monitor_cycles_total",
			Help: "Total number of collection cycles.",
		}, []string{"outcome"}),

		CollectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kcloud_monitor_collect_duration_seconds",
			Help:    "Duration of per-cluster collection in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CollectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcloud_monitor_collect_total",
			Help: "Total number of per-cluster collection attempts.",
		}, []string{"outcome"}),
		EnricherDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kcloud_monitor_enricher_duration_seconds",
			Help:    "Duration of each snapshot enricher in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"enricher"}),

		AlertsFiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcloud_monitor_alerts_fired_total",
			Help: "Total number of alerts fired.",
		}, []string{"rule", "severity"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kcloud_monitor_alerts_suppressed_total",
			Help: "Total number of alert firings suppressed by cooldown.",
		}),
		SinkDeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcloud_monitor_sink_delivery_failures_total",
			Help: "Total number of failed alert sink deliveries.",
		}, []string{"sink"}),

		Mode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kcloud_monitor_enhanced_mode",
			Help: "1 when the pipeline runs in enhanced mode, 0 in fallback.",
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kcloud_monitor_consecutive_cycle_failures",
			Help: "Consecutive failed collection cycles.",
		}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcloud_monitor_probes_total",
			Help: "Total number of persistent-collaborator health probes.",
		}, []string{"outcome"}),

		HistorySnapshots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kcloud_monitor_history_snapshots",
			Help: "Snapshots retained in the in-memory history per cluster.",
		}, []string{"cluster"}),
	}

	reg.MustRegister(
		m.CycleDuration,
		m.CyclesTotal,
		m.CollectDuration,
		m.CollectTotal,
		m.EnricherDuration,
		m.AlertsFiredTotal,
		m.AlertsSuppressed,
		m.SinkDeliveryFailures,
		m.Mode,
		m.ConsecutiveFailures,
		m.ProbesTotal,
		m.HistorySnapshots,
	)

	return m
}
