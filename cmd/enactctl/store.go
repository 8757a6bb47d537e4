package main

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/store"
)

// openStore bootstraps a *store.Store from cfg's backend selection,
// registering Prometheus counters against reg (nil disables metrics
// entirely). This is enactctl's one dependency on the config layer: every
// other command operates purely against the resulting *store.Store.
func openStore(cfg Config, logger enactlog.Logger, reg prometheus.Registerer) (*store.Store, error) {
	var opts []store.Option
	opts = append(opts, store.WithLogger(logger))
	if reg != nil {
		opts = append(opts, store.WithMetrics(store.NewStoreMetrics(reg)))
	}

	switch cfg.Backend {
	case "", "memory":
		return store.New(store.NewMemoryBackend(), opts...), nil
	case "filesystem":
		if cfg.StoreRoot == "" {
			return nil, errors.Errorf("backend %q requires store_root", cfg.Backend)
		}
		backend, err := store.NewFilesystemBackend(cfg.StoreRoot)
		if err != nil {
			return nil, errors.Wrapf(err, "opening filesystem backend at %s", cfg.StoreRoot)
		}
		return store.New(backend, opts...), nil
	case "pebble":
		if cfg.StoreRoot == "" {
			return nil, errors.Errorf("backend %q requires store_root", cfg.Backend)
		}
		backend, err := store.OpenPebbleBackend(cfg.StoreRoot)
		if err != nil {
			return nil, errors.Wrapf(err, "opening pebble backend at %s", cfg.StoreRoot)
		}
		if reg != nil {
			if err := reg.Register(store.NewPebbleCollector(backend.DB())); err != nil {
				return nil, errors.Wrap(err, "registering pebble metrics")
			}
		}
		return store.New(backend, opts...), nil
	default:
		return nil, errors.Errorf("unknown backend %q: want memory, filesystem or pebble", cfg.Backend)
	}
}
