// Package ir provides the compiled runtime representation for graphscript.
//
// This package contains the output of the compiler: one immutable RuntimeClass
// per script class, one RuntimeGraph per compiled script graph, and the
// Scratchpad value store both of them use for default and constant data.
// Everything here is index-addressed; GUIDs survive only as identity for
// lookup during compilation and for diagnostics.
//
// ir imports nothing internal. All other internal packages may import it.
//
// Key design constraints:
//   - Add* methods append and return a stable index
//   - Find* methods do a linear GUID search (compile time only, never per frame)
//   - Finalize trims backing storage; a finalized class is never mutated again
//     and may be shared by any number of live objects
package ir
