package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 0, Signal: "Start", Params: []ir.Value{}},
		{Seq: 1, Signal: "Hit", Params: []ir.Value{ir.Int(3), ir.String("left")}},
		{Seq: 2, Frame: 1, Signal: "Update", Params: []ir.Value{ir.Float(0.016)}},
		{Seq: 3, Frame: 1, Signal: "Hit", Params: []ir.Value{ir.Int(4)}},
	}
	r.Variables = ir.Properties{"speed": ir.Float(2), "name": ir.String("door")}
	r.States = map[string]string{"Main": "Open", "Idle": ""}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertState, Machine: "Main", Expect: "Open"},
		{Type: AssertState, Machine: "Idle"},
		{Type: AssertVariable, Variable: "speed", Expect: 2},
		{Type: AssertVariable, Variable: "name", Expect: "door"},
		{Type: AssertTraceContains, Signal: "Hit", Params: []any{3}},
		{Type: AssertTraceContains, Signal: "Hit", Params: []any{4}},
		{Type: AssertTraceContains, Signal: "Start"},
		{Type: AssertTraceOrder, Signals: []string{"Start", "Hit", "Hit"}},
		{Type: AssertTraceOrder, Signals: []string{"Update", "Hit"}},
		{Type: AssertTraceCount, Signal: "Hit", Count: 2},
		{Type: AssertTraceCount, Signal: "Stop", Count: 0},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		errMsg    string
	}{
		{"wrong state", Assertion{Type: AssertState, Machine: "Main", Expect: "Closed"}, `state "Open"`},
		{"unknown machine", Assertion{Type: AssertState, Machine: "Other", Expect: "A"}, "no such machine"},
		{"wrong value", Assertion{Type: AssertVariable, Variable: "speed", Expect: 3}, "speed = 3"},
		{"wrong kind", Assertion{Type: AssertVariable, Variable: "name", Expect: 1}, "name = 1"},
		{"unknown variable", Assertion{Type: AssertVariable, Variable: "mass", Expect: 1}, "no such variable"},
		{"params mismatch", Assertion{Type: AssertTraceContains, Signal: "Hit", Params: []any{5}}, "not found in trace"},
		{"too many params", Assertion{Type: AssertTraceContains, Signal: "Hit", Params: []any{4, "x"}}, "not found in trace"},
		{"order", Assertion{Type: AssertTraceOrder, Signals: []string{"Update", "Start"}}, "Start (index 1)"},
		{"missing from order", Assertion{Type: AssertTraceOrder, Signals: []string{"Stop"}}, "Stop (index 0)"},
		{"count", Assertion{Type: AssertTraceCount, Signal: "Hit", Count: 1}, "2 occurrences"},
		{"unknown type", Assertion{Type: "vibes"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.errMsg)
		})
	}
}

func TestAssertionErrorIncludesTrace(t *testing.T) {
	err := assertTraceCount(sampleResult().Trace, Assertion{Type: AssertTraceCount, Signal: "Hit", Count: 0})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[1] frame 0 Hit [3, \"left\"]")
	assert.Contains(t, msg, "[2] frame 1 Update [0.016]")
}

func TestResultAddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
