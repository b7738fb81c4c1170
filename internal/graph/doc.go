// Package graph executes compiled RuntimeGraphs.
//
// An Instance pairs one RuntimeGraph with one object. It copies the graph's
// scratchpad so port values written during execution stay private to the
// object, and Reset restores the compiled constants without recompiling.
//
// Execution contract:
//   - Execution starts at the activation node (the graph entry for signal
//     activations) and follows the single signal or flow link leaving the
//     output port each callback returns. Execution is depth-first.
//   - A callback that calls Trigger runs the chain behind that output to
//     completion before it continues, which is how one node drives several
//     outputs in order.
//   - Data inputs read the producer's output slot as it was last written.
//     Pull inputs re-run the producer's callback before reading.
//   - Every callback invocation counts as one step. A graph that exceeds
//     its step quota is aborted with a StepsExceededError.
package graph
