package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/graphscript/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
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
			fmt.Fprintf(&buf, "  [%d] frame %d %s %s\n", event.Seq, event.Frame, event.Signal, formatParams(event.Params))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the messages of those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertState:
			err = assertState(result, a)
		case AssertVariable:
			err = assertVariable(result, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func assertState(result *Result, a Assertion) error {
	got, ok := result.States[a.Machine]
	if !ok {
		return &AssertionError{Type: AssertState, Expected: fmt.Sprintf("state machine %s", a.Machine), Actual: "no such machine"}
	}
	want := ""
	if a.Expect != nil {
		want = fmt.Sprint(a.Expect)
	}
	if got != want {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s in state %q", a.Machine, want),
			Actual:   fmt.Sprintf("state %q", got),
		}
	}
	return nil
}

func assertVariable(result *Result, a Assertion) error {
	got, ok := result.Variables[a.Variable]
	if !ok {
		return &AssertionError{Type: AssertVariable, Expected: fmt.Sprintf("variable %s", a.Variable), Actual: "no such variable"}
	}
	want, err := ir.FromAny(a.Expect)
	if err != nil {
		return err
	}
	if !valuesMatch(want, got) {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("%s = %s", a.Variable, ir.Format(want)),
			Actual:   ir.Format(got),
		}
	}
	return nil
}

// assertTraceContains checks that signal was dispatched with params as a
// prefix of its parameters.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := convertParams(a.Params)
	if err != nil {
		return err
	}
	for _, event := range trace {
		if event.Signal == a.Signal && paramsMatch(want, event.Params) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("signal %s with params %s", a.Signal, formatParams(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks signals appear in the given order. Signals
// don't need to be consecutive, and a repeated name matches a later
// occurrence.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for i, want := range a.Signals {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Signal == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("signals in order: %v", a.Signals),
				Actual:   fmt.Sprintf("%s (index %d) not found after the previous signals", want, i),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Signal == a.Signal {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Signal),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func paramsMatch(want, got []ir.Value) bool {
	if len(want) > len(got) {
		return false
	}
	for i := range want {
		if !valuesMatch(want[i], got[i]) {
			return false
		}
	}
	return true
}

// valuesMatch compares after coercing want to got's kind, so YAML ints
// match float variables and strings match GUIDs.
func valuesMatch(want, got ir.Value) bool {
	if got == nil {
		return want == nil
	}
	coerced, err := ir.Coerce(want, got.Kind())
	if err != nil {
		return false
	}
	return ir.Equal(coerced, got)
}

func formatParams(params []ir.Value) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = ir.Format(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
