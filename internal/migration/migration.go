package migration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// DefaultID names the reserve migration in the ledger.
const DefaultID = "foreign-asset-reserves/v1"

// Registry enumerates the registered foreign assets.
type Registry interface {
	ForeignAssets(ctx context.Context) ([]location.Location, error)
}

// ReserveStore is the persisted asset -> records mapping.
type ReserveStore interface {
	// GetReserves returns the stored records and whether an entry exists.
	GetReserves(ctx context.Context, asset location.Location) ([]reserve.Record, bool, error)
	// PutReserves replaces the entry for asset.
	PutReserves(ctx context.Context, asset location.Location, records []reserve.Record) error
}

// Ledger remembers applied runs so a rules change is applied exactly once.
type Ledger interface {
	RecordRun(ctx context.Context, run Run) error
	LastRun(ctx context.Context, migrationID string) (Run, bool, error)
}

// Run is one applied migration as recorded in the ledger.
type Run struct {
	RunID       string `json:"run_id"`
	MigrationID string `json:"migration_id"`
	Deployment  string `json:"deployment"`
	RulesHash   string `json:"rules_hash"`
	Assets      int    `json:"assets"`
	Resolved    int    `json:"resolved"`
	Unresolved  int    `json:"unresolved"`
	Changed     int    `json:"changed"`
	Unchanged   int    `json:"unchanged"`
	// Seq is the ledger's logical clock, assigned on RecordRun.
	Seq int64 `json:"seq"`
}

// Migration applies and checks reserve records for one rule table.
type Migration struct {
	id        string
	resolver  *reserve.Resolver
	rulesHash string
	registry  Registry
	store     ReserveStore
	ledger    Ledger
	logger    *zap.Logger
	metrics   *Metrics
	newRunID  func() (string, error)
}

// Option configures a Migration.
type Option func(*Migration)

// WithLedger records applied runs and enables Pending.
func WithLedger(l Ledger) Option {
	return func(m *Migration) { m.ledger = l }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Migration) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records run outcomes in metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Migration) { m.metrics = metrics }
}

// WithRunIDs overrides run id generation. Tests use it for stable ids.
func WithRunIDs(gen func() (string, error)) Option {
	return func(m *Migration) {
		if gen != nil {
			m.newRunID = gen
		}
	}
}

// New creates a migration named id that resolves with resolver.
func New(id string, resolver *reserve.Resolver, registry Registry, store ReserveStore, opts ...Option) (*Migration, error) {
	if id == "" {
		return nil, fmt.Errorf("migration id is required")
	}
	if resolver == nil || registry == nil || store == nil {
		return nil, fmt.Errorf("migration %s: resolver, registry and store are required", id)
	}
	hash, err := resolver.Table().Hash()
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", id, err)
	}

	m := &Migration{
		id:        id,
		resolver:  resolver,
		rulesHash: hash,
		registry:  registry,
		store:     store,
		logger:    zap.NewNop(),
		newRunID:  newUUIDv7,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("migration").With(
		zap.String("migration_id", id),
		zap.String("deployment", resolver.Table().Deployment))
	return m, nil
}

// ID returns the migration id.
func (m *Migration) ID() string { return m.id }

// RulesHash returns the hash of the rule table this migration applies.
func (m *Migration) RulesHash() string { return m.rulesHash }

// Pending reports whether the current rule table has not been applied yet.
// Without a ledger every run is pending.
func (m *Migration) Pending(ctx context.Context) (bool, error) {
	if m.ledger == nil {
		return true, nil
	}
	last, ok, err := m.ledger.LastRun(ctx, m.id)
	if err != nil {
		return false, &StorageError{Op: "read ledger", Err: err}
	}
	return !ok || last.RulesHash != m.rulesHash, nil
}

// LastRun returns the most recent ledger entry, if any.
func (m *Migration) LastRun(ctx context.Context) (Run, bool, error) {
	if m.ledger == nil {
		return Run{}, false, nil
	}
	run, ok, err := m.ledger.LastRun(ctx, m.id)
	if err != nil {
		return Run{}, false, &StorageError{Op: "read ledger", Err: err}
	}
	return run, ok, nil
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
