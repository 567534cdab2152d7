package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Best-effort writes swallow their errors toward the caller; these counters
// are the operator-facing channel that makes a systemic audit-store outage
// detectable.
var (
	recordsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_records_submitted_total",
		Help: "Audit records handed to the dispatcher, by variant.",
	}, []string{"kind"})

	recordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_records_persisted_total",
		Help: "Audit records successfully written to the store, by variant.",
	}, []string{"kind"})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_persist_failures_total",
		Help: "Audit store writes that failed, by variant.",
	}, []string{"kind"})

	recordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_records_dropped_total",
		Help: "Audit records dropped because the queue was full.",
	})
)
