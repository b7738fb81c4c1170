package engine

import (
	"github.com/roach88/graphscript/internal/ir"
)

// TraceEntry is one dispatched signal.
type TraceEntry struct {
	Seq    int64
	Frame  uint64
	Object ObjectID
	Signal ir.Signal
}

// Tracer records every signal objects dispatch. Its Observe method is a
// SignalObserver.
type Tracer struct {
	frame   func() uint64
	entries []TraceEntry
}

// NewTracer creates a tracer stamping entries with frame(). A nil frame
// stamps zero.
func NewTracer(frame func() uint64) *Tracer {
	if frame == nil {
		frame = func() uint64 { return 0 }
	}
	return &Tracer{frame: frame}
}

// Observe records sig with a private copy of its parameters.
func (t *Tracer) Observe(id ObjectID, sig ir.Signal) {
	t.entries = append(t.entries, TraceEntry{
		Seq:    int64(len(t.entries)),
		Frame:  t.frame(),
		Object: id,
		Signal: sig.Clone(),
	})
}

// Entries returns the recorded entries in dispatch order.
func (t *Tracer) Entries() []TraceEntry { return t.entries }

// Len returns the number of recorded entries.
func (t *Tracer) Len() int { return len(t.entries) }
