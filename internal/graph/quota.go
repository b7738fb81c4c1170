package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
)

// DefaultMaxSteps bounds one graph execution.
const DefaultMaxSteps = 1000

// Quota counts node callback invocations for one execution and enforces a
// maximum. It catches runaway graphs such as flow loops through a Sequence
// or self-referencing pull chains.
type Quota struct {
	maxSteps int
	current  int
}

// NewQuota creates a quota with the given limit. Non-positive limits use
// DefaultMaxSteps.
func NewQuota(maxSteps int) *Quota {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Quota{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
func (q *Quota) Check(graph ir.GUID) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{Graph: graph, Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *Quota) Reset() { q.current = 0 }

// Current returns the current step count.
func (q *Quota) Current() int { return q.current }

// MaxSteps returns the limit.
func (q *Quota) MaxSteps() int { return q.maxSteps }

// StepsExceededError is returned when one execution exceeds its quota.
type StepsExceededError struct {
	Graph ir.GUID
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("graph %s exceeded max steps quota: %d steps > %d limit", e.Graph, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is or wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
