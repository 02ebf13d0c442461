// Package metrics instruments the group manager with Prometheus metrics:
// mutation counts and durations per lifecycle verb, cache hit/miss counts,
// storage round-trip durations, and notification fan-out outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Manager mutation metrics, labeled by lifecycle verb (create, remove,
	// recover, expand, start, stop) and outcome (ok, precondition_failed,
	// storage_failed, fleet_failed).
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupmgr_operations_total",
			Help: "Total number of Manager lifecycle operations by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupmgr_operation_duration_seconds",
			Help:    "Time taken for a Manager lifecycle operation, end to end",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	// InfoStore cache metrics.
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupmgr_cache_hits_total",
			Help: "Total number of InfoStore cache hits by entity kind",
		},
		[]string{"kind"},
	)

	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupmgr_cache_misses_total",
			Help: "Total number of InfoStore cache misses by entity kind",
		},
		[]string{"kind"},
	)

	ChainsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupmgr_chains_total",
			Help: "Total number of chains known to the cache",
		},
	)

	GroupsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groupmgr_groups_total",
			Help: "Total number of groups known to the cache by status",
		},
		[]string{"status"},
	)

	// Storage adapter metrics.
	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupmgr_storage_operation_duration_seconds",
			Help:    "Time taken for a storage adapter round trip by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Fleet controller metrics.
	FleetTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupmgr_fleet_tasks_total",
			Help: "Total number of fleet task requests by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// Notifier metrics.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupmgr_notifications_total",
			Help: "Total number of downstream notifyGroupInfo calls by service name and outcome",
		},
		[]string{"service", "outcome"},
	)

	// Reconciler metrics.
	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groupmgr_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "groupmgr_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordedIntentsOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupmgr_recorded_intents_outstanding",
			Help: "Number of entities currently parked in a recorded-intent status",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OperationsTotal,
		OperationDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		ChainsTotal,
		GroupsTotal,
		StorageOperationDuration,
		FleetTasksTotal,
		NotificationsTotal,
		ReconciliationCyclesTotal,
		ReconciliationDuration,
		RecordedIntentsOutstanding,
	)
}

// Handler returns the Prometheus HTTP scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing an operation and observing its duration into
// a histogram once it completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time into a labeled histogram vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
