// Package store provides SQLite-backed storage for compiled class records
// and recorded signal traces.
//
// The store keeps three append-only tables:
//   - classes: one row per successful compile (GUID, timestamp, layout
//     fingerprint and dump)
//   - runs: one row per simulation run, keyed by its UUIDv7 run id
//   - signals: every signal dispatched during a run, in dispatch order
//
// # Ordering
//
// Signals are ordered by their per-run seq, never by wall time, so a trace
// reads back in the order the runtime dispatched it. Compiles of one class
// are ordered by the class registry's logical timestamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Parameter columns hold RFC 8785 canonical JSON produced by
// ir.MarshalCanonical; signal hashes come from ir.SignalHash.
package store
