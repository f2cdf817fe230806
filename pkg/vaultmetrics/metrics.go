// Package vaultmetrics exposes Prometheus collectors and health/readiness
// HTTP handlers for vaultd, following the same package-level-collector
// style as Warren's metrics package.
package vaultmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VaultUnlocked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultd_vault_unlocked",
			Help: "Whether the local vault is currently unlocked (1) or locked (0)",
		},
	)

	DevicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vaultd_devices_total",
			Help: "Total number of paired devices by status",
		},
		[]string{"status"},
	)

	SyncAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultd_sync_attempts_total",
			Help: "Total number of sync attempts by peer device and outcome",
		},
		[]string{"device_id", "outcome"},
	)

	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultd_sync_duration_seconds",
			Help:    "Time taken for a full device sync exchange",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"device_id"},
	)

	SyncDeltasApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultd_sync_deltas_applied_total",
			Help: "Total number of remote deltas applied by entity type",
		},
		[]string{"entity_type"},
	)

	SyncConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultd_sync_conflicts_total",
			Help: "Total number of sync conflicts queued for manual resolution during apply",
		},
	)

	PairingAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultd_pairing_attempts_total",
			Help: "Total number of pairing attempts by outcome",
		},
		[]string{"outcome"},
	)

	RelayPendingTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultd_relay_pending_envelopes_total",
			Help: "Total envelopes currently queued across all recipients on this relay",
		},
	)

	RelayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultd_relay_requests_total",
			Help: "Total relay HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	DiscoveryPeersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultd_discovery_peers_total",
			Help: "Number of peers currently visible via mDNS discovery",
		},
	)

	ReconcileCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultd_reconcile_cycles_total",
			Help: "Total number of sync task queue reconciliation cycles run",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultd_reconcile_duration_seconds",
			Help:    "Time taken to drain one round of queued sync tasks",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		VaultUnlocked,
		DevicesTotal,
		SyncAttemptsTotal,
		SyncDuration,
		SyncDeltasApplied,
		SyncConflictsTotal,
		PairingAttemptsTotal,
		RelayPendingTotal,
		RelayRequestsTotal,
		DiscoveryPeersTotal,
		ReconcileCyclesTotal,
		ReconcileDuration,
	)
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation and records its duration to a histogram vector
// on ObserveDurationVec, mirroring the pattern used elsewhere for latency
// metrics.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
