package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_mutations_total",
			Help: "Optimistic mutations by scope and final state",
		},
		[]string{"scope", "state"},
	)

	cacheReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_reloads_total",
			Help: "Full row cache reloads by result",
		},
		[]string{"result"},
	)

	cacheRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_cache_rows",
			Help: "Rows held by the row cache after the last reload",
		},
	)

	importedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_import_rows_total",
			Help: "Bulk import rows by result",
		},
		[]string{"result"},
	)

	liveUpdates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_live_updates",
			Help: "1 for the change subscription currently in use",
		},
		[]string{"subscriber"},
	)

	bestEffortDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_best_effort_dropped_total",
			Help: "Best-effort side effects that failed and were dropped",
		},
		[]string{"operation"},
	)
)

func RecordMutation(bulk bool, state string) {
	scope := "single"
	if bulk {
		scope = "bulk"
	}
	mutationsTotal.WithLabelValues(scope, state).Inc()
}

func RecordReload(result string, rows int) {
	cacheReloads.WithLabelValues(result).Inc()
	if result == "ok" {
		cacheRows.Set(float64(rows))
	}
}

func RecordImportRows(result string, n int) {
	if n == 0 {
		return
	}
	importedRows.WithLabelValues(result).Add(float64(n))
}

// SetLiveSubscriber marks the active change subscriber; "" means degraded.
func SetLiveSubscriber(name string) {
	liveUpdates.Reset()
	if name != "" {
		liveUpdates.WithLabelValues(name).Set(1)
	}
}

func RecordBestEffortDropped(operation string) {
	bestEffortDropped.WithLabelValues(operation).Inc()
}
