package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testClass(timestamp int64, name string) *ir.RuntimeClass {
	rc := ir.NewRuntimeClass(timestamp, testutil.GUIDFor("class/"+name), name, testutil.EntityClass, nil)
	rc.Finalize()
	return rc
}

// createTestRun writes a run and returns its id.
func createTestRun(t *testing.T, s *Store, id string) string {
	t.Helper()
	require.NoError(t, s.WriteRun(context.Background(), RunRecord{
		ID:             id,
		ClassGUID:      testutil.GUIDFor("class/game::counter"),
		ClassName:      "game::counter",
		FrameTime:      16 * time.Millisecond,
		RuntimeVersion: ir.RuntimeVersion,
	}))
	return id
}

func signalRecord(t *testing.T, run string, seq int64, frame uint64, sig ir.Signal) SignalRecord {
	t.Helper()
	rec, err := NewSignalRecord(run, seq, frame, "0:0", sig)
	require.NoError(t, err)
	return rec
}
