package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/loader"
	"github.com/roach88/graphscript/internal/store"
)

const unknownTypeScripts = `package scripts
` + minimalEnv + `
class: Bad: {
	base: "Entity"
	variables: v: {type: "Nope", default: 1}
}
`

const unknownBaseScripts = `package scripts
` + minimalEnv + `
class: Orphan: base: "Nope"
`

const missingDependencyScripts = `package scripts

env: {
	classes: Entity: {}
	components: {
		Transform: singleton: true
		Mover: hard: ["Transform"]
	}
}

class: Lonely: {
	base: "Entity"
	components: Mover: {}
}
`

func TestCompileScripts(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), scriptsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 1 class(es)")
	assert.Contains(t, out, "Door  3 variable(s), 1 function(s), 2 state(s)")
}

func TestCompileScriptsJSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), scriptsDir)
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Classes, 1)

	door := result.Classes[0]
	assert.Equal(t, "Door", door.Name)
	assert.Equal(t, loader.GUIDFor("class/Door").String(), door.GUID)
	assert.Equal(t, 3, door.Variables)
	assert.Equal(t, 2, door.Components)
	assert.Equal(t, 1, door.StateMachines)
	assert.Equal(t, 2, door.States)
	assert.NotEmpty(t, door.Fingerprint)
	assert.Nil(t, door.Changed, "only set when compiling against a database")
	assert.Empty(t, result.Errors)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "layouts", "door.txt")

	_, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), scriptsDir, "--output", outputFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "class Door ")
	assert.Contains(t, string(data), "machine 0 Main")
	assert.Contains(t, string(data), "variable 0 open")
}

func TestCompileRecordsClasses(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")

	compile := func() ClassSummary {
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), scriptsDir, "--db", dbPath)
		require.NoError(t, err)
		var result CompilationResult
		decodeData(t, out, &result)
		require.Len(t, result.Classes, 1)
		require.NotNil(t, result.Classes[0].Changed)
		return result.Classes[0]
	}

	first := compile()
	assert.True(t, *first.Changed, "first compile is new")
	second := compile()
	assert.False(t, *second.Changed, "unchanged script keeps its layout")
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.ReadClass(context.Background(), loader.GUIDFor("class/Door"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Timestamp, "second process resumes the class clock")
	assert.Equal(t, "Door", rec.File)
	assert.Contains(t, rec.Layout, "class Door ")
}

func TestCompileNonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, out, "no CUE files found")
}

func TestCompileFailure(t *testing.T) {
	dir := writeScripts(t, unknownTypeScripts)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "error E211 Bad")
}

func TestCompileFailureJSON(t *testing.T) {
	dir := writeScripts(t, unknownTypeScripts)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var result CompilationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E211", resp.Error.Code)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Bad", result.Errors[0].Class)
}

func TestCompileLoadError(t *testing.T) {
	dir := writeScripts(t, unknownBaseScripts)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E103")
	assert.Contains(t, out, "main.cue:")
}

func TestCompileDependencyWarnings(t *testing.T) {
	dir := writeScripts(t, missingDependencyScripts)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 class(es)")
	assert.Contains(t, out, "warning E250 Lonely")

	_, err = execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestToDiagnostic(t *testing.T) {
	d := toDiagnostic(os.ErrNotExist)
	assert.Equal(t, "E001", d.Code)
	assert.Equal(t, os.ErrNotExist.Error(), d.Message)
}
