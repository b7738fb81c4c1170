package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, s *UpdateScheduler, f Frequency, prio int, fn func(UpdateContext)) *Scope {
	t.Helper()
	scope := &Scope{}
	require.NoError(t, s.Connect(UpdateParams{Scope: scope, Frequency: f, Priority: prio, Callback: fn}))
	return scope
}

func runFrame(s *UpdateScheduler) int {
	s.BeginFrame(16 * time.Millisecond)
	n := s.Update(PriorityMax, PriorityMin)
	s.EndFrame()
	return n
}

func TestConnectValidation(t *testing.T) {
	s := NewUpdateScheduler(nil)
	fn := func(UpdateContext) {}

	require.Error(t, s.Connect(UpdateParams{Frequency: EveryFrame, Callback: fn}))
	require.Error(t, s.Connect(UpdateParams{Scope: &Scope{}, Frequency: EveryFrame}))
	require.Error(t, s.Connect(UpdateParams{Scope: &Scope{}, Frequency: 3, Callback: fn}))

	scope := connect(t, s, EveryFrame, 0, fn)
	require.Error(t, s.Connect(UpdateParams{Scope: scope, Frequency: EveryFrame, Callback: fn}), "double connect")
	assert.Equal(t, 1, s.Len())
}

func TestPriorityOrder(t *testing.T) {
	s := NewUpdateScheduler(nil)
	var order []string
	connect(t, s, EveryFrame, 10, func(UpdateContext) { order = append(order, "low") })
	connect(t, s, EveryFrame, 50, func(UpdateContext) { order = append(order, "high") })
	connect(t, s, EveryFrame, 10, func(UpdateContext) { order = append(order, "low2") })

	assert.Equal(t, 3, runFrame(s))
	assert.Equal(t, []string{"high", "low", "low2"}, order)
}

func TestPriorityWindows(t *testing.T) {
	s := NewUpdateScheduler(nil)
	var order []string
	connect(t, s, EveryFrame, PriorityEarly, func(UpdateContext) { order = append(order, "early") })
	connect(t, s, EveryFrame, PriorityDefault, func(UpdateContext) { order = append(order, "default") })
	connect(t, s, EveryFrame, PriorityLate, func(UpdateContext) { order = append(order, "late") })

	s.BeginFrame(time.Millisecond)
	assert.Equal(t, 1, s.Update(PriorityMax, PriorityDefault+1))
	assert.Equal(t, []string{"early"}, order)

	assert.Equal(t, 2, s.Update(PriorityDefault, PriorityMin))
	assert.Equal(t, 0, s.Update(PriorityMax, PriorityMin), "each callback runs once per frame")
	s.EndFrame()
	assert.Equal(t, []string{"early", "default", "late"}, order)
}

func TestFrequencyStrides(t *testing.T) {
	s := NewUpdateScheduler(nil)
	counts := map[string]int{}
	connect(t, s, EveryFrame, 0, func(UpdateContext) { counts["every"]++ })
	connect(t, s, Every4Frames, 0, func(UpdateContext) { counts["four"]++ })
	connect(t, s, Every32Frames, 0, func(UpdateContext) { counts["thirty-two"]++ })

	for range 64 {
		runFrame(s)
	}
	assert.Equal(t, 64, counts["every"])
	assert.Equal(t, 16, counts["four"])
	assert.Equal(t, 2, counts["thirty-two"])
}

func TestBucketsBalanceLoad(t *testing.T) {
	s := NewUpdateScheduler(nil)
	perFrame := make([]int, 0, 4)
	for range 8 {
		connect(t, s, Every4Frames, 0, func(UpdateContext) {})
	}
	for range 4 {
		perFrame = append(perFrame, runFrame(s))
	}
	assert.Equal(t, []int{2, 2, 2, 2}, perFrame)
}

func TestDisconnectDuringUpdate(t *testing.T) {
	s := NewUpdateScheduler(nil)
	ran := 0
	var victim *Scope
	connect(t, s, EveryFrame, 10, func(UpdateContext) { s.Disconnect(victim) })
	victim = connect(t, s, EveryFrame, 0, func(UpdateContext) { ran++ })

	runFrame(s)
	assert.Equal(t, 0, ran)
	assert.False(t, victim.Connected())
	assert.False(t, s.Disconnect(victim))
	assert.Equal(t, 1, s.Len())
}

func TestUpdateContext(t *testing.T) {
	s := NewUpdateScheduler(nil)
	var got UpdateContext
	connect(t, s, EveryFrame, 0, func(ctx UpdateContext) { got = ctx })

	s.BeginFrame(20 * time.Millisecond)
	s.Update(PriorityMax, PriorityMin)
	assert.Equal(t, uint64(1), got.Frame)
	assert.Equal(t, 20*time.Millisecond, got.FrameTime)
}
