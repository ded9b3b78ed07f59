package harness

import "github.com/roach88/xcmreserve/internal/ir"

// TraceEvent records one executed flow step and its structured output.
type TraceEvent struct {
	Seq    int64       `json:"seq"`
	Step   string      `json:"step"`
	Output ir.IRObject `json:"output"`
}

// toIR returns the canonical form used in golden snapshots.
func (e TraceEvent) toIR() ir.IRObject {
	return ir.IRObject{
		"seq":    ir.IRInt(e.Seq),
		"step":   ir.IRString(e.Step),
		"output": e.Output,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(seq int64, step string, output ir.IRObject) {
	r.Trace = append(r.Trace, TraceEvent{Seq: seq, Step: step, Output: output})
}
