// Package engine runs compiled classes as live objects.
//
// An Object binds one RuntimeClass to a private scratchpad, native
// components, actions and timers, and one current state per state machine.
// Objects live in an ObjectPool, which hands out generation-tagged
// ObjectIDs so stale ids are rejected after a slot is reused.
//
// Execution model:
//   - Everything runs on the simulation goroutine. Nothing in this package
//     takes locks; logical reentrancy is the only hazard.
//   - ProcessSignal moves an object between the idle and active dispatch
//     states. A signal raised while a dispatch is active is copied into the
//     object's FIFO queue and dispatched after the current one completes,
//     in raise order.
//   - ExecuteFunction forces queuing for the duration of the call, so
//     signals raised by a function graph are deferred until it returns.
//   - A Simulation advances the shared TimerSystem and UpdateScheduler
//     once per frame.
//
// Simulation modes:
//
//	Idle --SetSimulationMode--> Preview | Game --SetSimulationMode--> Idle
//
// Entering Preview or Game hot swaps to a newer compile of the class if the
// registry holds one, resets the scratchpad, applies public variable
// overrides and runs the constructors. Game additionally dispatches the
// Start signal, starts every state machine and starts auto-start timers.
package engine
