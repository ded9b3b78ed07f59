package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xcmreserve/internal/migration"
)

// StatusResult compares the ledger with the configured rule table.
type StatusResult struct {
	MigrationID string         `json:"migration_id"`
	Deployment  string         `json:"deployment"`
	RulesHash   string         `json:"rules_hash"`
	Pending     bool           `json:"pending"`
	LastRun     *migration.Run `json:"last_run,omitempty"`
}

func (r StatusResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration:  %s\n", r.MigrationID)
	fmt.Fprintf(&b, "deployment: %s\n", r.Deployment)
	fmt.Fprintf(&b, "rules:      %s\n", r.RulesHash)
	if r.LastRun == nil {
		b.WriteString("last run:   (never)\n")
	} else {
		fmt.Fprintf(&b, "last run:   %s (rules %s, %d assets, %d changed)\n",
			r.LastRun.RunID, shortHash(r.LastRun.RulesHash), r.LastRun.Assets, r.LastRun.Changed)
	}
	if r.Pending {
		b.WriteString("status:     pending")
	} else {
		b.WriteString("status:     up to date")
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the last migration run and whether the current rules are applied",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	backend, err := e.openStore()
	if err != nil {
		return err
	}
	defer backend.Close()

	m, _, err := e.openMigration(backend)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pending, err := m.Pending(ctx)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	last, ok, err := m.LastRun(ctx)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	table, err := e.cfg.RuleTable()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	result := StatusResult{
		MigrationID: m.ID(),
		Deployment:  table.Deployment,
		RulesHash:   m.RulesHash(),
		Pending:     pending,
	}
	if ok {
		result.LastRun = &last
	}
	return e.formatter.Success(result)
}
