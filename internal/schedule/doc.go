// Package schedule drives per-frame work: an UpdateScheduler that batches
// update callbacks into frequency-strided buckets, and a TimerSystem that
// fires callbacks when timers expire.
//
// Both are single-threaded. They are owned by the simulation loop and must
// only be touched from it.
package schedule
