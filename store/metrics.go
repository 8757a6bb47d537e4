package store

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics counts the backend-agnostic operations every Store performs,
// independent of which Backend is in use. Registered alongside
// PebbleCollector when the backend is a PebbleBackend, or standalone
// otherwise.
type StoreMetrics struct {
	commits    prometheus.Counter
	commitHits prometheus.Counter // commits that were already present (deduped)
	checkouts  prometheus.Counter
	notFound   prometheus.Counter
	modifies   prometheus.Counter
}

// NewStoreMetrics constructs and registers a StoreMetrics with reg. Pass a
// prometheus.NewRegistry() in tests to avoid the global default registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enact_store_commits_total",
			Help: "Total number of Store.Commit calls.",
		}),
		commitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enact_store_commit_dedup_total",
			Help: "Total number of Store.Commit calls that found the digest already present.",
		}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enact_store_checkouts_total",
			Help: "Total number of Store.Checkout calls.",
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enact_store_not_found_total",
			Help: "Total number of Store.Checkout calls that raised ErrNotFound.",
		}),
		modifies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enact_store_modifies_total",
			Help: "Total number of Store.Modify calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commits, m.commitHits, m.checkouts, m.notFound, m.modifies)
	}
	return m
}
