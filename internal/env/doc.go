// Package env is the registry of native descriptors a script builds on.
//
// Env classes, components, actions, data types and signals are registered by
// the host (or the CUE loader) and looked up by GUID. Lookups return nil for
// unknown GUIDs; callers decide whether that is an error.
//
// The Start, Stop and Update signals are built in and always present.
package env
