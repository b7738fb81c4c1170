package ir

// Version constants for the compiled representation and runtime.
const (
	// IRVersion is the runtime class layout version. Bump it whenever Dump
	// output changes shape so stored fingerprints are not compared across
	// incompatible layouts.
	IRVersion = "1"

	// RuntimeVersion is the graphscript runtime version.
	RuntimeVersion = "0.1.0"
)
