package reserve

import (
	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/location"
)

// Resolution is the outcome of resolving one asset.
type Resolution struct {
	Records []Record
	// Rule names the winning rule; empty when nothing matched.
	Rule    string
	Matched bool
}

// Resolver evaluates a RuleTable. The zero value is not usable; use
// NewResolver.
type Resolver struct {
	table  RuleTable
	logger *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for no-match diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over table. The table's rule slice is
// copied so later changes by the caller have no effect.
func NewResolver(table RuleTable, opts ...Option) *Resolver {
	rules := make([]Rule, len(table.Rules))
	copy(rules, table.Rules)

	r := &Resolver{
		table:  RuleTable{Deployment: table.Deployment, Rules: rules},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("reserve")
	return r
}

// Table returns the table the resolver evaluates.
func (r *Resolver) Table() RuleTable {
	return r.table
}

// ReservesFor returns the reserve records of asset. It is total: when no
// rule matches it logs a warning and returns an empty, non-nil slice.
func (r *Resolver) ReservesFor(asset location.Location) []Record {
	return r.Resolve(asset).Records
}

// Resolve evaluates the table in order and reports the first matching rule.
func (r *Resolver) Resolve(asset location.Location) Resolution {
	for _, rule := range r.table.Rules {
		if records, ok := rule.Match(asset); ok {
			return Resolution{Records: records, Rule: rule.Name(), Matched: true}
		}
	}

	r.logger.Warn("No reserve rule matched asset",
		zap.String("deployment", r.table.Deployment),
		zap.Stringer("asset", asset))
	return Resolution{Records: []Record{}}
}
