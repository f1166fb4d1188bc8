package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the protocol service.
type Metrics struct {
	AuditsPrepared        prometheus.Counter
	FindingsRevealed      prometheus.Counter
	Withdrawals           prometheus.Counter
	InvalidationsProposed prometheus.Counter
	AuditsInvalidated     prometheus.Counter
	OperationDuration     *prometheus.HistogramVec
}

// New creates and registers all metrics against reg. Tests pass a fresh
// registry; production passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuditsPrepared: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditescrow_audits_prepared_total",
			Help: "Total number of audits prepared",
		}),
		FindingsRevealed: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditescrow_findings_revealed_total",
			Help: "Total number of reveals that funded escrow",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditescrow_withdrawals_total",
			Help: "Total number of withdrawal calls that paid out",
		}),
		InvalidationsProposed: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditescrow_invalidations_proposed_total",
			Help: "Total number of invalidation proposals",
		}),
		AuditsInvalidated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditescrow_audits_invalidated_total",
			Help: "Total number of audits invalidated by governance",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auditescrow_operation_duration_seconds",
			Help:    "Latency of protocol operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
