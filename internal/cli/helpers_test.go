package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/ir"
)

var (
	scriptsDir   = filepath.Join("..", "..", "testdata", "scripts")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
)

// execute runs cmd with args and returns its stdout. Logs and cobra
// diagnostics go to a separate buffer so JSON output stays parseable.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeScripts writes src as the only CUE file of a new scripts directory.
func writeScripts(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scripts")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.cue"), []byte(src), 0644))
	return dir
}

// decodeData decodes a JSON CLIResponse, re-decoding its data into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.CLIResponse
}

const minimalEnv = `
env: {
	classes: Entity: {}
	signals: Ping: {}
}
`

func formatOf(v ir.Value) string { return ir.Format(v) }
