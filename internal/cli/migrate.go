package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xcmreserve/internal/migration"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Force bool
}

// MigrateResult is the outcome of the migrate command. Report is nil when
// the current rules were already applied and the run was skipped.
type MigrateResult struct {
	Applied   bool                   `json:"applied"`
	RulesHash string                 `json:"rules_hash"`
	Report    *migration.ApplyReport `json:"report,omitempty"`
	LastRun   *migration.Run         `json:"last_run,omitempty"`
}

func (r MigrateResult) String() string {
	if !r.Applied {
		s := fmt.Sprintf("✓ Up to date: rules %s already applied", shortHash(r.RulesHash))
		if r.LastRun != nil {
			s += fmt.Sprintf(" by run %s", r.LastRun.RunID)
		}
		return s + " (use --force to re-apply)"
	}
	rep := r.Report
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Applied %s (run %s)\n", rep.MigrationID, rep.RunID)
	fmt.Fprintf(&b, "  rules:      %s (%s)\n", shortHash(rep.RulesHash), rep.Deployment)
	fmt.Fprintf(&b, "  assets:     %d\n", rep.Assets)
	fmt.Fprintf(&b, "  resolved:   %d\n", rep.Resolved)
	fmt.Fprintf(&b, "  unresolved: %d\n", rep.Unresolved)
	fmt.Fprintf(&b, "  changed:    %d\n", rep.Changed)
	fmt.Fprintf(&b, "  unchanged:  %d", rep.Unchanged)
	for _, asset := range rep.UnresolvedAssets {
		fmt.Fprintf(&b, "\n  no reserve: %s", asset)
	}
	return b.String()
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the reserve migration to every registered asset",
		Long: `Resolve every registered foreign asset with the configured rule table and
replace its stored reserve records.

The run is skipped when the ledger shows the current rules were already
applied. Re-applying an unchanged table rewrites nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "apply even when the current rules were already applied")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	backend, err := e.openStore()
	if err != nil {
		return err
	}
	defer backend.Close()

	m, metrics, err := e.openMigration(backend)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pending, err := m.Pending(ctx)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	if !pending && !opts.Force {
		result := MigrateResult{RulesHash: m.RulesHash()}
		if last, ok, err := m.LastRun(ctx); err == nil && ok {
			result.LastRun = &last
		}
		return e.formatter.Success(result)
	}

	report, err := m.Apply(ctx)
	e.writeMetrics(metrics)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return e.formatter.Success(MigrateResult{Applied: true, RulesHash: m.RulesHash(), Report: &report})
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
