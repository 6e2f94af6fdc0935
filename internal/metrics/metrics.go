// Package metrics holds the Prometheus instrumentation of the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "walletledger"

var (
	// LedgerOperationsTotal counts engine operations by kind and outcome.
	LedgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// LedgerConflictRetries counts store conflicts that triggered a retry.
	LedgerConflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_conflict_retries_total",
			Help:      "Transaction scopes retried after a store conflict.",
		},
		[]string{"kind"},
	)

	// LedgerOperationDuration observes the wall time of an engine operation.
	LedgerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RiskScore observes fraud scores assigned to candidates.
	RiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Fraud scores assigned by the risk scorer.",
			Buckets:   []float64{0, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// NotificationsTotal counts notification deliveries by kind and result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by kind and delivery result.",
		},
		[]string{"kind", "result"},
	)

	// MaintenanceRunsTotal counts scheduler job runs by job and result.
	MaintenanceRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_runs_total",
			Help:      "Maintenance job runs by job and result.",
		},
		[]string{"job", "result"},
	)

	// MaintenanceRunDuration observes scheduler job durations.
	MaintenanceRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "maintenance_run_duration_seconds",
			Help:      "Maintenance job duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// RetentionSoftDeleted counts records soft-deleted by the retention sweep.
	RetentionSoftDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_soft_deleted_total",
			Help:      "Records soft-deleted by the retention sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LedgerOperationsTotal,
		LedgerConflictRetries,
		LedgerOperationDuration,
		RiskScore,
		NotificationsTotal,
		MaintenanceRunsTotal,
		MaintenanceRunDuration,
		RetentionSoftDeleted,
	)
}
