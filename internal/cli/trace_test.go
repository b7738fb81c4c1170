package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordDoorRun records the door run under runID and returns the database.
func recordDoorRun(t *testing.T, dbPath, runID string, extra ...string) {
	t.Helper()
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), doorRun(dbPath, runID, extra...)...)
	require.NoError(t, err)
}

func TestTraceListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-b")
	recordDoorRun(t, dbPath, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var runs []RunSummary
	resp := decodeData(t, out, &runs)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, "Door", runs[0].Class)
	assert.Equal(t, "16ms", runs[0].FrameTime)
	assert.Equal(t, uint64(3), runs[0].Frames)

	out, err = execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 run(s)")
	assert.Contains(t, out, "run-a  Door  3 frame(s) of 16ms")
}

func TestTraceTimelineWithNames(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--run", "run-a", "--scripts", scriptsDir)
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, out, &result)
	assert.Equal(t, "run-a", result.Run.ID)
	require.Len(t, result.Timeline, 3)

	var names []string
	for _, ev := range result.Timeline {
		names = append(names, ev.Signal)
	}
	assert.Equal(t, []string{"Start", "Hit", "autoClose"}, names)
	assert.Equal(t, []string{"1"}, result.Timeline[1].Params)
	assert.Equal(t, uint64(3), result.Timeline[2].Frame)
	assert.Equal(t, map[string]int{"Start": 1, "Hit": 1, "autoClose": 1}, result.Counts)
}

func TestTraceSignalFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--run", "run-a", "--scripts", scriptsDir, "--signal", "Hit")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-a (Door, 3 frame(s))")
	assert.Contains(t, out, "[2] frame 0 0:0 Hit [1]")
	assert.NotContains(t, out, "autoClose")
}

func TestTraceWithoutScriptsUsesBuiltinNames(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, out, &result)
	require.Len(t, result.Timeline, 3)
	assert.Equal(t, "Start", result.Timeline[0].Signal)
	assert.NotEqual(t, "Hit", result.Timeline[1].Signal, "script signals are shown by GUID")
}

func TestTraceErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")

	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")

	_, err = execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, err = execute(t, NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
