package harness

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/deployment"
	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/migration"
	"github.com/roach88/xcmreserve/internal/reserve"
	"github.com/roach88/xcmreserve/internal/ruleset"
	"github.com/roach88/xcmreserve/internal/store"
	"github.com/roach88/xcmreserve/internal/testutil"
)

// Harness executes one scenario against a private store.
type Harness struct {
	store     *store.Store
	resolver  *reserve.Resolver
	migration *migration.Migration
	clock     *testutil.DeterministicClock
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Trace sequence numbers
// and run ids come from deterministic generators, so repeated runs yield
// identical traces. An error is returned only when the scenario cannot be
// executed; failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	table, err := scenarioTable(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	prefix := scenario.RunIDPrefix
	if prefix == "" {
		prefix = "run"
	}

	resolver := reserve.NewResolver(table, reserve.WithLogger(zap.NewNop()))
	mig, err := migration.New(migration.DefaultID, resolver, st, st,
		migration.WithLedger(st),
		migration.WithRunIDs(testutil.SequentialRunIDs(prefix)))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:     st,
		resolver:  resolver,
		migration: mig,
		clock:     testutil.NewDeterministicClock(),
	}

	ctx := context.Background()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioTable(s *Scenario) (reserve.RuleTable, error) {
	if s.RulesFile != "" {
		table, err := ruleset.CompileFile(s.RulesFile)
		if err != nil {
			return reserve.RuleTable{}, err
		}
		if errs := ruleset.Validate(table); len(errs) > 0 {
			return reserve.RuleTable{}, fmt.Errorf("invalid rule table %s: %w", s.RulesFile, errs[0])
		}
		return table, nil
	}

	params := deployment.DefaultParams()
	if s.Params != nil {
		params = deployment.Params{
			AssetHubID:      s.Params.AssetHubID,
			EthereumChainID: s.Params.EthereumChainID,
		}
	}
	return deployment.Lookup(s.Deployment, params)
}

func (h *Harness) executeSetup(ctx context.Context, setup Setup) error {
	for i, raw := range setup.Assets {
		asset, err := parseLocation(raw)
		if err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
		if _, err := h.store.RegisterAsset(ctx, asset); err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
	}

	for i, entry := range setup.Stored {
		asset, err := parseLocation(entry.Asset)
		if err != nil {
			return fmt.Errorf("stored[%d].asset: %w", i, err)
		}
		records, err := parseRecords(entry.Records)
		if err != nil {
			return fmt.Errorf("stored[%d].records: %w", i, err)
		}
		if _, err := h.store.RegisterAsset(ctx, asset); err != nil {
			return fmt.Errorf("stored[%d]: %w", i, err)
		}
		if err := h.store.PutReserves(ctx, asset, records); err != nil {
			return fmt.Errorf("stored[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		output, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Step, err)
		}
		result.AddTrace(h.clock.Next(), step.Step, output)

		for _, mismatch := range matchExpect(output, step.Expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Step, mismatch))
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, step FlowStep) (ir.IRObject, error) {
	switch step.Step {
	case StepResolve:
		asset, err := parseLocation(step.Asset)
		if err != nil {
			return nil, err
		}
		res := h.resolver.Resolve(asset)
		return ir.IRObject{
			"matched": ir.IRBool(res.Matched),
			"rule":    ir.IRString(res.Rule),
			"records": reserve.RecordsToIR(res.Records),
		}, nil

	case StepApply:
		report, err := h.migration.Apply(ctx)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{
			"run_id":     ir.IRString(report.RunID),
			"assets":     ir.IRInt(report.Assets),
			"resolved":   ir.IRInt(report.Resolved),
			"unresolved": ir.IRInt(report.Unresolved),
			"changed":    ir.IRInt(report.Changed),
			"unchanged":  ir.IRInt(report.Unchanged),
		}, nil

	case StepCheck:
		mode, err := migration.ParseMode(step.Mode)
		if err != nil {
			return nil, err
		}
		report, err := h.migration.Check(ctx, mode)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{
			"mode":    ir.IRString(report.Mode),
			"passed":  ir.IRBool(report.Passed()),
			"matched": ir.IRInt(report.Matched),
			"differs": ir.IRInt(report.Differs),
			"missing": ir.IRInt(report.Missing),
		}, nil

	default:
		return nil, fmt.Errorf("unknown step %q", step.Step)
	}
}

// matchExpect compares each expected field with the output by canonical
// bytes. Fields absent from expect are not checked.
func matchExpect(output ir.IRObject, expect map[string]any) []string {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var mismatches []string
	for _, k := range keys {
		want, err := ir.FromAny(expect[k])
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("expect.%s: %v", k, err))
			continue
		}
		got, ok := output[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("expect.%s: no such output field", k))
			continue
		}
		if !irEqual(want, got) {
			mismatches = append(mismatches, fmt.Sprintf("expect.%s: want %s, got %s", k, canonical(want), canonical(got)))
		}
	}
	return mismatches
}

func irEqual(a, b ir.IRValue) bool {
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func parseLocation(raw any) (location.Location, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return location.Location{}, err
	}
	return location.FromIR(v)
}

func parseRecords(raw []any) ([]reserve.Record, error) {
	records := make([]reserve.Record, 0, len(raw))
	for i, r := range raw {
		v, err := ir.FromAny(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		rec, err := reserve.RecordFromIR(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
