package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")
	recordDoorRun(t, dbPath, "run-b")

	out, err := execute(t, NewDiffCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-a", "run-b")
	require.NoError(t, err)
	assert.Contains(t, out, "Diff run-a (3 signal(s)) against run-b (3 signal(s))")
	assert.Contains(t, out, "✓ Traces identical")
}

func TestDiffDivergentRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")
	recordDoorRun(t, dbPath, "run-b", "--signal", "Hit:[2]")

	out, err := execute(t, NewDiffCommand(&RootOptions{Format: "json"}), "--db", dbPath, "run-a", "run-b")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result DiffResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_DIVERGED", resp.Error.Code)
	assert.False(t, result.Identical)
	assert.Equal(t, int64(3), result.DivergedAt, "a second Hit precedes autoClose")
	require.NotNil(t, result.WantEvent)
	require.NotNil(t, result.GotEvent)
	assert.Equal(t, []string{"2"}, result.GotEvent.Params)
}

func TestDiffShorterTrace(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}),
		scriptsDir, "--class", "Door", "--frames", "3", "--db", dbPath, "--run-id", "run-idle")
	require.NoError(t, err)

	out, err := execute(t, NewDiffCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-idle", "run-a")
	require.Error(t, err)
	assert.Contains(t, out, "✗ Traces diverge at seq 2")
	assert.Contains(t, out, "want: <end of trace>")
}

func TestDiffUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordDoorRun(t, dbPath, "run-a")

	_, err := execute(t, NewDiffCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-a", "run-nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: run-nope")
}
