package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/testutil"
)

func TestSignalNames(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, machineClass(&recorder{}))
	names := NewSignalNames(h.Env, rc)

	assert.Equal(t, "Start", names.Name(env.SignalStart))
	assert.Equal(t, "U", names.Name(testutil.Header("timer", "U").ID))

	g, err := names.Resolve("Update")
	require.NoError(t, err)
	assert.Equal(t, env.SignalUpdate, g)

	g, err = names.Resolve("T")
	require.NoError(t, err)
	assert.Equal(t, testutil.Header("timer", "T").ID, g)

	id := testutil.GUIDFor("elsewhere")
	g, err = names.Resolve(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, g)
	assert.Equal(t, id.String(), names.Name(id))

	_, err = names.Resolve("nope")
	assert.Error(t, err)
}
