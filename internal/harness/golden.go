package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/xcmreserve/internal/ir"
)

// TraceSnapshot captures a scenario execution for golden comparison.
type TraceSnapshot struct {
	ScenarioName string
	Deployment   string
	Trace        []TraceEvent
}

func (s *TraceSnapshot) toIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		trace[i] = event.toIR()
	}
	obj := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
	if s.Deployment != "" {
		obj["deployment"] = ir.IRString(s.Deployment)
	}
	return obj
}

// RunWithGolden executes a scenario and compares its canonical trace with
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := &TraceSnapshot{
		ScenarioName: scenario.Name,
		Deployment:   scenario.Deployment,
		Trace:        result.Trace,
	}
	AssertGolden(t, scenario.Name, snapshot)
	return result, nil
}

// AssertGolden compares a snapshot with its golden file.
func AssertGolden(t *testing.T, name string, snapshot *TraceSnapshot) {
	t.Helper()

	data, err := ir.MarshalCanonical(snapshot.toIR())
	if err != nil {
		t.Fatalf("failed to marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
