package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run of a class.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Scripts is the CUE scripts directory, relative to the scenario file.
	Scripts string `yaml:"scripts"`

	// Class is the label of the script class to instantiate.
	Class string `yaml:"class"`

	// Overrides are applied to public variables on every mode entry.
	Overrides map[string]any `yaml:"overrides,omitempty"`

	// FrameTime is the length of one frame, as a Go duration string.
	// Defaults to engine.DefaultFrameTime.
	FrameTime string `yaml:"frame_time,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is exactly one of a mode switch, a signal, a number of frames or a
// function call.
type Step struct {
	Mode   string `yaml:"mode,omitempty"`
	Signal string `yaml:"signal,omitempty"`
	Frames int    `yaml:"frames,omitempty"`
	Call   string `yaml:"call,omitempty"`

	// Params are the signal or call parameters.
	Params []any `yaml:"params,omitempty"`
}

// Assertion validates the trace or the final object state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Machine names the state machine (state).
	Machine string `yaml:"machine,omitempty"`

	// Variable names the class variable (variable).
	Variable string `yaml:"variable,omitempty"`

	// Expect is the expected state name or variable value. An empty state
	// expects the machine to have no current state.
	Expect any `yaml:"expect,omitempty"`

	// Signal names the signal (trace_contains, trace_count).
	Signal string `yaml:"signal,omitempty"`

	// Params is a prefix of the expected signal parameters (trace_contains).
	Params []any `yaml:"params,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Signals is the expected dispatch order (trace_order).
	Signals []string `yaml:"signals,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertVariable      = "variable"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. The scripts path is
// resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Scripts != "" && !filepath.IsAbs(scenario.Scripts) {
		scenario.Scripts = filepath.Join(filepath.Dir(path), scenario.Scripts)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if s.Scripts == "" {
		return fmt.Errorf("scripts is required")
	}
	if s.Class == "" {
		return fmt.Errorf("class is required")
	}
	if s.FrameTime != "" {
		d, err := time.ParseDuration(s.FrameTime)
		if err != nil {
			return fmt.Errorf("frame_time: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_time must be positive")
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s Step, index int) error {
	set := 0
	for _, ok := range []bool{s.Mode != "", s.Signal != "", s.Frames != 0, s.Call != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of mode, signal, frames or call is required", index)
	}
	if s.Frames < 0 {
		return fmt.Errorf("steps[%d]: frames must be positive", index)
	}
	if len(s.Params) > 0 && s.Signal == "" && s.Call == "" {
		return fmt.Errorf("steps[%d]: params need a signal or call", index)
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertState:
		if a.Machine == "" {
			return fmt.Errorf("assertions[%d]: machine is required for state", index)
		}
	case AssertVariable:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for variable", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for variable", index)
		}
	case AssertTraceContains:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Signals) == 0 {
			return fmt.Errorf("assertions[%d]: signals list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
