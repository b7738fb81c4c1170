package harness

import (
	"github.com/roach88/graphscript/internal/ir"
)

// TraceEvent is one signal the scenario object dispatched.
type TraceEvent struct {
	Seq    int64      `json:"seq"`
	Frame  uint64     `json:"frame"`
	Object string     `json:"object"`
	Signal string     `json:"signal"` // signal, timer or GUID name
	Params []ir.Value `json:"params"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors lists the failed assertions. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Variables holds the final value of every class variable.
	Variables ir.Properties `json:"variables,omitempty"`

	// States maps each state machine to its final state name, empty when
	// it has none.
	States map[string]string `json:"states,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Variables: ir.Properties{},
		States:    make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
