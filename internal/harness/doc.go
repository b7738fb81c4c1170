// Package harness runs YAML scenarios against compiled script classes.
//
// A scenario names a scripts directory, the class to instantiate and a
// list of steps. Every step is executed against one object in a fresh
// host, and the signals the object dispatches are recorded as the trace.
//
// # Scenario Format
//
//	name: door_opens
//	description: "A hit opens the door; the timer closes it"
//	scripts: ../scripts
//	class: Door
//	overrides: { hits: 5 }
//	steps:
//	  - mode: game
//	  - signal: Hit
//	    params: [1]
//	  - frames: 3
//	  - call: reset
//	assertions:
//	  - type: state
//	    machine: Main
//	    expect: Closed
//	  - type: variable
//	    variable: hits
//	    expect: 6
//	  - type: trace_order
//	    signals: [Start, Hit, autoClose]
//	  - type: trace_count
//	    signal: Hit
//	    count: 1
//	  - type: trace_contains
//	    signal: Hit
//	    params: [1]
//
// Signals are named like in scripts: an env signal, a timer of the class,
// or a GUID string.
//
// # Deterministic Testing
//
// The run id comes from an engine.FixedGenerator and frames advance by a
// fixed frame time, so traces are identical across runs and can be
// compared against golden files with RunWithGolden.
package harness
