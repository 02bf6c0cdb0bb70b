// Package metrics holds the Prometheus collectors for the approval pipeline.
//
// Label sets are fixed and small; PO numbers never appear as labels.
//
// Import Path: github.com/ppockey/po-approvals/internal/pkg/metrics
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "po_approvals"

var (
	// OutboxEvents counts outbox events by result: processed, failed, skipped.
	OutboxEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled, by result.",
		},
		[]string{"result"},
	)

	// ChainsCreated counts approval chains initialized from the outbox.
	ChainsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chains_created_total",
		Help:      "Approval chains initialized.",
	})

	// Decisions counts approve/deny calls by decision and result.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Approval decisions, by decision and result.",
		},
		[]string{"decision", "result"},
	)

	// LegacyClaims counts claim attempts against PRMS: claimed or lost.
	LegacyClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_claims_total",
			Help:      "PRMS claim attempts, by result.",
		},
		[]string{"result"},
	)

	// LegacyWriteFailures counts post-commit PRMS writes that failed. Any
	// increase needs manual reconciliation.
	LegacyWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_write_failures_total",
			Help:      "PRMS write-backs that failed after the local commit.",
		},
		[]string{"op"},
	)

	// TxRetries counts serializable transaction retries.
	TxRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tx_retries_total",
		Help:      "Local transactions retried after a serialization failure.",
	})
)

func init() {
	prometheus.MustRegister(
		OutboxEvents,
		ChainsCreated,
		Decisions,
		LegacyClaims,
		LegacyWriteFailures,
		TxRetries,
	)
}
