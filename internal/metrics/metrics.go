package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks credential service operations by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credstore_operations_total",
			Help: "Total number of credential service operations (by operation and outcome).",
		},
		[]string{"operation", "outcome"},
	)

	// Counts policy denials so unexpected probing shows up on a dashboard.
	PolicyDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credstore_policy_denials_total",
			Help: "Number of RBAC policy denials (by role and action).",
		},
		[]string{"role", "action"},
	)

	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credstore_audit_entries_total",
			Help: "Number of audit entries written (by action).",
		},
		[]string{"action"},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)
