package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Read outcomes.
const (
	outcomeHit       = "hit"
	outcomeMiss      = "miss"
	outcomeReadError = "read_error"
	outcomeCorrupt   = "corrupt"
	outcomeMigrated  = "migrated"
)

type metrics struct {
	reads    *prometheus.CounterVec
	writes   *prometheus.CounterVec
	corrupt  *prometheus.CounterVec
	migrated *prometheus.CounterVec
}

// newMetrics registers the collectors on reg. A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		reads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorledger",
			Subsystem: "persistence",
			Name:      "reads_total",
			Help:      "Collection reads by outcome.",
		}, []string{"collection", "outcome"}),
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorledger",
			Subsystem: "persistence",
			Name:      "writes_total",
			Help:      "Committed write batches by outcome.",
		}, []string{"outcome"}),
		corrupt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorledger",
			Subsystem: "persistence",
			Name:      "corrupt_total",
			Help:      "Stored values discarded because they could not be decoded.",
		}, []string{"collection"}),
		migrated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorledger",
			Subsystem: "persistence",
			Name:      "migrated_total",
			Help:      "Legacy plaintext values re-saved encrypted.",
		}, []string{"collection"}),
	}
}
