package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Collection names inside the memory databases.
const (
	entityCollection       = "entities"
	relationshipCollection = "relationships"
	systemCollection       = "sys"
)

/*
Store is a stateless-per-call facade over one long-lived database client,
safe for concurrent use by multiple callers. Uniqueness and required-field
invariants are enforced by the database's own indexes and validator, not by
in-process locking, so multi-step operations (batch inserts, check-then-insert
relationship creation) are resolved by unique-index rejection rather than
prevented up front.
*/
type Store struct {
	cfg     Config
	backend Backend

	entities      Collection
	relationships Collection
	system        Collection

	// gateErr caches the configuration failure observed at construction.
	// When set, every operation short-circuits with it instead of touching
	// the database.
	gateErr *StoreError

	relMu      sync.Mutex
	relIndexed bool
}

/*
New connects to MongoDB and bootstraps the entity schema. A missing
connection string or an unreachable endpoint does not fail construction:
the returned store answers every call with the same configuration error
envelope until the process restarts. Schema bootstrap failing against a
reachable database is fatal.
*/
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	if cfg.URI == "" {
		log.Error("no MongoDB connection string configured", "env", EnvConnection)

		return gated(cfg, newError(
			KindConfiguration, "no MongoDB connection string set",
		).WithDetails("Set "+EnvConnection+" or memory.connection in the config file.")), nil
	}

	backend, err := Dial(ctx, cfg.URI)

	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)

		return gated(cfg, newError(
			KindConfiguration, "failed to connect to MongoDB: %v", err,
		)), nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := backend.Ping(pingCtx); err != nil {
		log.Error("MongoDB is unreachable", "error", err)

		return gated(cfg, newError(
			KindConfiguration, "MongoDB is unreachable: %v", err,
		).WithDetails("Check that the endpoint in "+EnvConnection+" is running and accepting connections.")), nil
	}

	store := NewWithBackend(backend, cfg)

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap entity schema: %w", err)
	}

	log.Info("memory store connected", "database", cfg.Database)

	return store, nil
}

// NewWithBackend builds a store over an already-dialed backend. The caller
// is expected to run EnsureSchema before serving operations; New does so
// itself.
func NewWithBackend(backend Backend, cfg Config) *Store {
	cfg = cfg.withDefaults()

	return &Store{
		cfg:           cfg,
		backend:       backend,
		entities:      backend.Collection(cfg.Database, entityCollection),
		relationships: backend.Collection(cfg.Database, relationshipCollection),
		system:        backend.Collection(cfg.SystemDatabase, systemCollection),
	}
}

// gated builds a store whose every operation returns the given configuration
// error.
func gated(cfg Config, err *StoreError) *Store {
	return &Store{cfg: cfg, gateErr: err}
}

// Configured reports whether the store passed its connectivity probe.
func (s *Store) Configured() bool {
	return s.gateErr == nil
}

// gate returns the cached configuration error envelope, if any. Every public
// operation consults it before touching the database.
func (s *Store) gate() (Result, bool) {
	if s.gateErr != nil {
		return Fail(s.gateErr), true
	}

	return nil, false
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	return s.backend.Close(ctx)
}
