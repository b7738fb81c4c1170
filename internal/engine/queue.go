package engine

import "github.com/roach88/graphscript/internal/ir"

// signalQueue is the FIFO of signals deferred while an object dispatches.
//
// The queue is unbounded so cascading signal handlers can defer
// arbitrarily many signals. It is only touched from the simulation
// goroutine and holds no lock.
type signalQueue struct {
	signals []ir.Signal
}

func newSignalQueue() *signalQueue {
	return &signalQueue{signals: make([]ir.Signal, 0, 8)}
}

// Enqueue appends a private copy of s.
func (q *signalQueue) Enqueue(s ir.Signal) {
	q.signals = append(q.signals, s.Clone())
}

// TryDequeue removes and returns the front signal.
func (q *signalQueue) TryDequeue() (ir.Signal, bool) {
	if len(q.signals) == 0 {
		return ir.Signal{}, false
	}
	s := q.signals[0]

	// Clear the slot so the backing array does not pin parameter slices.
	q.signals[0] = ir.Signal{}
	if len(q.signals) == 1 {
		q.signals = q.signals[:0]
	} else {
		q.signals = q.signals[1:]
	}
	return s, true
}

// Len returns the number of queued signals.
func (q *signalQueue) Len() int { return len(q.signals) }

// Clear drops every queued signal.
func (q *signalQueue) Clear() {
	clear(q.signals)
	q.signals = q.signals[:0]
}
