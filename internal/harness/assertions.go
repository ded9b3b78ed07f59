package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/xcmreserve/internal/reserve"
	"github.com/roach88/xcmreserve/internal/store"
)

// AssertionContext carries what state assertions need to query.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Step, canonical(event.Output))
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStoredRecords:
			err = assertStoredRecords(actx, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertStoredRecords compares the persisted record list of one asset with
// the expected list by canonical bytes.
func assertStoredRecords(actx *AssertionContext, a Assertion) error {
	asset, err := parseLocation(a.Asset)
	if err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	want, err := parseRecords(a.Records)
	if err != nil {
		return fmt.Errorf("records: %w", err)
	}

	got, ok, err := actx.Store.GetReserves(actx.Ctx, asset)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertStoredRecords,
			Expected: fmt.Sprintf("%s stored as %s", asset, canonical(reserve.RecordsToIR(want))),
			Actual:   "no stored entry",
		}
	}
	if !reserve.RecordsEqual(got, want) {
		return &AssertionError{
			Type:     AssertStoredRecords,
			Expected: canonical(reserve.RecordsToIR(want)),
			Actual:   canonical(reserve.RecordsToIR(got)),
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Step == a.Step {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps", a.Count, a.Step),
			Actual:   fmt.Sprintf("%d %s steps", count, a.Step),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the steps appear in the given order.
// Intervening steps are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Steps) && event.Step == a.Steps[next] {
			next++
		}
	}
	if next < len(a.Steps) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: strings.Join(a.Steps, " -> "),
			Actual:   fmt.Sprintf("order broken at %q", a.Steps[next]),
			Trace:    trace,
		}
	}
	return nil
}
