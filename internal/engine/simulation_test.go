package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/testutil"
)

func TestSimulationStepOrdersTimersBeforeUpdates(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, testutil.Class("Ticker", testutil.EntityClass,
		timer("tick", 2, true),
		receiver("tick", testutil.Header("timer", "tick").ID, recordGraph("tick", rec)),
		receiver("update", env.SignalUpdate, recordGraph("update", rec)),
	))
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))
	assert.True(t, obj.TimerActive(0))

	sim := NewSimulation(h, WithRunIDGenerator(NewFixedGenerator("run-1")))
	for range 3 {
		sim.Step(250 * time.Millisecond)
	}

	assert.Equal(t, []string{
		"update:0.25",
		"tick", "update:0.25",
		"update:0.25",
	}, rec.events)
	assert.Equal(t, uint64(3), sim.Frames())
	assert.Equal(t, "run-1", sim.RunID())
}

func TestSimulationStopsUpdatesOutsideGame(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, testutil.Class("Ticker", testutil.EntityClass,
		receiver("update", env.SignalUpdate, recordGraph("update", rec)),
	))
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	sim := NewSimulation(h)
	sim.Step(DefaultFrameTime)
	require.NoError(t, obj.SetSimulationMode(ModePreview))
	sim.Step(DefaultFrameTime)

	assert.Len(t, rec.events, 1)
	assert.Zero(t, h.Updates.Len())
}

func TestSimulationRun(t *testing.T) {
	sim := NewSimulation(testutil.NewHost(), WithFrameTime(10*time.Millisecond))
	require.NoError(t, sim.Run(context.Background(), 5))
	assert.Equal(t, uint64(5), sim.Frames())
	assert.Equal(t, 10*time.Millisecond, sim.FrameTime())
	assert.NotEmpty(t, sim.RunID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sim.Run(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(5), sim.Frames())
}
