package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/xcmreserve/internal/migration"
)

// Scenario defines a migration conformance scenario. A scenario seeds a
// fresh store, runs a flow of resolve, apply and check steps against one
// rule table, and asserts on the resulting trace and stored records.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Deployment names a built-in rule table. Ignored when RulesFile is set.
	Deployment string `yaml:"deployment,omitempty"`

	// Params overrides the deployment constants.
	Params *ParamsSpec `yaml:"params,omitempty"`

	// RulesFile is a CUE rule table, relative to the scenario file.
	RulesFile string `yaml:"rules_file,omitempty"`

	// Setup seeds the registry and pre-existing stored records.
	Setup Setup `yaml:"setup"`

	// Flow is executed in order; each step appends one trace event.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and stored state.
	// Supported types: stored_records, trace_count, trace_order.
	Assertions []Assertion `yaml:"assertions"`

	// RunIDPrefix seeds the sequential run id generator. Defaults to "run".
	RunIDPrefix string `yaml:"run_id_prefix,omitempty"`
}

// ParamsSpec mirrors deployment.Params in scenario files.
type ParamsSpec struct {
	AssetHubID      uint32 `yaml:"asset_hub_id"`
	EthereumChainID uint64 `yaml:"ethereum_chain_id"`
}

// Setup establishes initial state. Locations use the canonical JSON form.
type Setup struct {
	Assets []any         `yaml:"assets"`
	Stored []StoredEntry `yaml:"stored,omitempty"`
}

// StoredEntry is a record list written before the flow runs, typically
// stale data left by an earlier rule table.
type StoredEntry struct {
	Asset   any   `yaml:"asset"`
	Records []any `yaml:"records"`
}

// FlowStep is one operation of the flow.
type FlowStep struct {
	// Step is resolve, apply or check.
	Step string `yaml:"step"`

	// Asset is the location to resolve (resolve only).
	Asset any `yaml:"asset,omitempty"`

	// Mode is pre or post (check only).
	Mode string `yaml:"mode,omitempty"`

	// Expect is a subset match against the step output.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates trace or final stored state.
type Assertion struct {
	Type string `yaml:"type"`

	// Asset and Records are used by stored_records.
	Asset   any   `yaml:"asset,omitempty"`
	Records []any `yaml:"records,omitempty"`

	// Step and Count are used by trace_count.
	Step  string `yaml:"step,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Steps is the expected order for trace_order.
	Steps []string `yaml:"steps,omitempty"`
}

// Flow step names.
const (
	StepResolve = "resolve"
	StepApply   = "apply"
	StepCheck   = "check"
)

// Assertion type constants.
const (
	AssertStoredRecords = "stored_records"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and a relative rules_file is resolved against the file's
// directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.RulesFile != "" && !filepath.IsAbs(scenario.RulesFile) {
		scenario.RulesFile = filepath.Join(filepath.Dir(path), scenario.RulesFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Deployment == "" && s.RulesFile == "" {
		return fmt.Errorf("deployment or rules_file is required")
	}
	if s.RulesFile != "" {
		if _, err := os.Stat(s.RulesFile); err != nil {
			return fmt.Errorf("rules file not found: %s", s.RulesFile)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, entry := range s.Setup.Stored {
		if entry.Asset == nil {
			return fmt.Errorf("setup.stored[%d]: asset is required", i)
		}
	}

	for i, step := range s.Flow {
		switch step.Step {
		case StepResolve:
			if step.Asset == nil {
				return fmt.Errorf("flow[%d]: asset is required for resolve", i)
			}
		case StepCheck:
			if _, err := migration.ParseMode(step.Mode); err != nil {
				return fmt.Errorf("flow[%d]: %w", i, err)
			}
		case StepApply:
		case "":
			return fmt.Errorf("flow[%d]: step is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown step %q", i, step.Step)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStoredRecords:
		if a.Asset == nil {
			return fmt.Errorf("assertions[%d]: asset is required for stored_records", index)
		}
	case AssertTraceCount:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
