package store

import (
	"fmt"
	"time"

	"github.com/roach88/graphscript/internal/ir"
)

// ClassRecord is one successful compile of a class.
type ClassRecord struct {
	GUID        ir.GUID
	Name        string
	Timestamp   int64
	Fingerprint string
	IRVersion   string
	File        string
	Layout      string
}

// NewClassRecord captures rc. file is the script file the class came from
// and may be empty.
func NewClassRecord(rc *ir.RuntimeClass, file string) ClassRecord {
	return ClassRecord{
		GUID:        rc.GUID(),
		Name:        rc.Name(),
		Timestamp:   rc.Timestamp(),
		Fingerprint: ir.Fingerprint(rc),
		IRVersion:   ir.IRVersion,
		File:        file,
		Layout:      ir.Dump(rc),
	}
}

// RunRecord describes one simulation run.
type RunRecord struct {
	ID             string
	ClassGUID      ir.GUID
	ClassName      string
	FrameTime      time.Duration
	Frames         uint64
	RuntimeVersion string
}

// SignalRecord is one dispatched signal of a run. Seq is the dispatch
// order within the run, starting at 1.
type SignalRecord struct {
	RunID    string
	Seq      int64
	Frame    uint64
	ObjectID string
	Signal   ir.GUID
	Sender   ir.GUID
	Params   []ir.Value
	Hash     string
}

// NewSignalRecord builds the record of sig and computes its hash.
func NewSignalRecord(runID string, seq int64, frame uint64, objectID string, sig ir.Signal) (SignalRecord, error) {
	hash, err := ir.SignalHash(sig)
	if err != nil {
		return SignalRecord{}, fmt.Errorf("signal record %d: %w", seq, err)
	}
	return SignalRecord{
		RunID:    runID,
		Seq:      seq,
		Frame:    frame,
		ObjectID: objectID,
		Signal:   sig.Type,
		Sender:   sig.Sender,
		Params:   sig.Params,
		Hash:     hash,
	}, nil
}
