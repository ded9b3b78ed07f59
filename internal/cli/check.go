package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xcmreserve/internal/migration"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Mode string
}

// CheckResult wraps the migration check report with its verdict.
type CheckResult struct {
	migration.CheckReport
	Passed bool `json:"passed"`
}

func (r CheckResult) String() string {
	var b strings.Builder
	for _, entry := range r.Entries {
		if entry.Status == migration.StatusMatch {
			continue
		}
		fmt.Fprintf(&b, "%-8s %s  %s\n", entry.Status, entry.AssetKey, entry.Asset)
	}
	verdict := "✓ Check passed"
	if !r.Passed {
		verdict = "✗ Check failed"
	}
	fmt.Fprintf(&b, "%s (%s-upgrade, rules %s): %d matched, %d differ, %d missing",
		verdict, r.Mode, shortHash(r.RulesHash), r.Matched, r.Differs, r.Missing)
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare stored reserve records with the rule table",
		Long: `Resolve every registered asset and compare the result with the stored
records without writing anything.

--mode pre reports the changes a migration would make and always passes.
--mode post verifies an applied migration and exits 1 on any mismatch.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(migration.ModePostUpgrade), "check mode (pre|post)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	mode, err := migration.ParseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
	}

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

	report, err := m.Check(cmd.Context(), mode)
	e.writeMetrics(metrics)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	result := CheckResult{CheckReport: report, Passed: report.Passed()}
	if err := e.formatter.Success(result); err != nil {
		return err
	}
	if !result.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: post-upgrade check found %d mismatch(es)",
			ErrCodeCheckFailed, report.Mismatches()))
	}
	return nil
}
