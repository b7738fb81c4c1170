package store

import (
	"context"
	"fmt"
)

// Divergence describes the first point where two traces differ.
type Divergence struct {
	// Seq is the first seq whose signals differ. Zero when the traces match.
	Seq int64
	// Want and Got are the records at Seq; one is nil when a trace ended
	// early.
	Want *SignalRecord
	Got  *SignalRecord
}

// Diverged reports whether the traces differ.
func (d Divergence) Diverged() bool { return d.Seq != 0 }

// CompareRuns compares the traces of two runs by signal hash, frame and
// object, which is how a re-run is checked against a recorded one.
func (s *Store) CompareRuns(ctx context.Context, want, got string) (Divergence, error) {
	a, err := s.ReadSignals(ctx, want)
	if err != nil {
		return Divergence{}, fmt.Errorf("compare runs: %w", err)
	}
	b, err := s.ReadSignals(ctx, got)
	if err != nil {
		return Divergence{}, fmt.Errorf("compare runs: %w", err)
	}
	return CompareTraces(a, b), nil
}

// CompareTraces returns the first divergence between two traces.
func CompareTraces(want, got []SignalRecord) Divergence {
	n := max(len(want), len(got))
	for i := range n {
		var w, g *SignalRecord
		if i < len(want) {
			w = &want[i]
		}
		if i < len(got) {
			g = &got[i]
		}
		if w != nil && g != nil && sameSignal(*w, *g) {
			continue
		}
		return Divergence{Seq: int64(i + 1), Want: w, Got: g}
	}
	return Divergence{}
}

func sameSignal(a, b SignalRecord) bool {
	return a.Hash == b.Hash && a.Frame == b.Frame && a.ObjectID == b.ObjectID
}
