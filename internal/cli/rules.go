package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/reserve"
	"github.com/roach88/xcmreserve/internal/ruleset"
)

// RulesResult describes the effective rule table.
type RulesResult struct {
	Deployment string          `json:"deployment"`
	Hash       string          `json:"hash"`
	Table      json.RawMessage `json:"table"`

	rules []reserve.Rule
}

func (r RulesResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deployment: %s\n", r.Deployment)
	fmt.Fprintf(&b, "hash:       %s\n", r.Hash)
	b.WriteString("rules:")
	for i, rule := range r.rules {
		switch rule := rule.(type) {
		case reserve.EcosystemPrefixRule:
			prefixes := make([]string, len(rule.Prefixes))
			for j, p := range rule.Prefixes {
				prefixes[j] = p.String()
			}
			fmt.Fprintf(&b, "\n  %d. %s: starts with %s -> {reserve: %s, teleportable: %t}",
				i+1, rule.Name(), strings.Join(prefixes, " or "), rule.Reserve, rule.Teleportable)
		default:
			fmt.Fprintf(&b, "\n  %d. %s: (1, [Parachain(id)]) -> {reserve: (1, [Parachain(id)]), teleportable: true}",
				i+1, rule.Name())
		}
	}
	return b.String()
}

// RulesValidation is the outcome of rules validate.
type RulesValidation struct {
	Source string                    `json:"source"`
	Valid  bool                      `json:"valid"`
	Hash   string                    `json:"hash,omitempty"`
	Errors []ruleset.ValidationError `json:"errors,omitempty"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate reserve rule tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the effective rule table and its hash",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesShow(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file.cue]",
		Short: "Validate a CUE rule table",
		Long: `Compile a CUE rule table and check it against the resolver's ordering
contract. Without an argument the configured rules_file, or the built-in
table of the configured deployment, is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runRulesValidate(rootOpts, path, cmd)
		},
	})

	return cmd
}

func runRulesShow(opts *RootOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	table, err := e.cfg.RuleTable()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	hash, err := table.Hash()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	data, err := ir.MarshalCanonical(table.ToIR())
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	return e.formatter.Success(RulesResult{
		Deployment: table.Deployment,
		Hash:       hash,
		Table:      data,
		rules:      table.Rules,
	})
}

func runRulesValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if path == "" {
		path = e.cfg.RulesFile
	}

	var table reserve.RuleTable
	source := path
	if path == "" {
		source = "built-in:" + e.cfg.Deployment
		table, err = e.cfg.RuleTable()
		if err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeConfig, err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		e.formatter.VerboseLog("Compiling %s", path)
		table, err = ruleset.CompileFile(path)
		if err != nil {
			return e.formatter.Fail(ExitFailure, ErrCodeInvalidRules, err)
		}
	}

	errs := ruleset.Validate(table)
	if len(errs) > 0 {
		return outputRulesErrors(e.formatter, source, errs)
	}

	hash, err := table.Hash()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if e.formatter.Format == "json" {
		return e.formatter.Success(RulesValidation{Source: source, Valid: true, Hash: hash})
	}
	fmt.Fprintf(e.formatter.Writer, "✓ %s is valid (hash %s)\n", source, shortHash(hash))
	return nil
}

func outputRulesErrors(formatter *OutputFormatter, source string, errs []ruleset.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   RulesValidation{Source: source, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s is invalid\n\n", source)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
