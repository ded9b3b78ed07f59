package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// ResolveResult is the outcome of the resolve command.
type ResolveResult struct {
	Deployment string          `json:"deployment"`
	Asset      string          `json:"asset"`
	AssetKey   string          `json:"asset_key"`
	Matched    bool            `json:"matched"`
	Rule       string          `json:"rule,omitempty"`
	Records    json.RawMessage `json:"records"`

	records []reserve.Record
}

func (r ResolveResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "asset:   %s\n", r.Asset)
	fmt.Fprintf(&b, "key:     %s\n", r.AssetKey)
	rule := r.Rule
	if !r.Matched {
		rule = "(none)"
	}
	fmt.Fprintf(&b, "rule:    %s\n", rule)
	if len(r.records) == 0 {
		b.WriteString("records: []")
		return b.String()
	}
	b.WriteString("records:")
	for _, rec := range r.records {
		fmt.Fprintf(&b, "\n  %s", rec)
	}
	return b.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <location-json>",
		Short: "Resolve the reserve records of one asset location",
		Long: `Evaluate the configured rule table against an asset location and print
the resulting reserve records and the rule that produced them.

The location uses the canonical JSON form:

  xcmreserve resolve '{"parents":1,"interior":[{"parachain":2000}]}'
  xcmreserve resolve '{"parents":2,"interior":[{"global_consensus":"kusama"},{"parachain":1000}]}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runResolve(opts *RootOptions, arg string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	asset, err := location.ParseJSON([]byte(arg))
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
	}
	key, err := asset.Key()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
	}

	table, err := e.cfg.RuleTable()
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	res := reserve.NewResolver(table, reserve.WithLogger(e.logger)).Resolve(asset)

	encoded, err := reserve.EncodeRecords(res.Records)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	return e.formatter.Success(ResolveResult{
		Deployment: table.Deployment,
		Asset:      asset.String(),
		AssetKey:   key,
		Matched:    res.Matched,
		Rule:       res.Rule,
		Records:    encoded,
		records:    res.Records,
	})
}
