package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/nodes"
	"github.com/roach88/graphscript/internal/script"
	"github.com/roach88/graphscript/internal/testutil"
)

func machineClass(rec *recorder) *script.Class {
	begin := testutil.Graph("Main.begin").
		Node("begin", &nodes.Begin{}).
		Node("go", &nodes.GoToState{State: "S0"}).
		Link("begin.out", "go.in").
		Build()
	s0 := state("S0",
		timer("T", 100, true),
		receiver("S0.start", env.SignalStart, recordGraph("S0.start", rec)),
		receiver("S0.stop", env.SignalStop, recordGraph("S0.stop", rec)),
		&script.Transition{
			Header: testutil.Header("transition", "S0.sig"),
			Signal: testutil.SignalSig,
			Target: testutil.Header("state", "S1").ID,
		},
	)
	s1 := state("S1",
		timer("U", 100, true),
		timer("V", 100, false),
		receiver("S1.start", env.SignalStart, recordGraph("S1.start", rec)),
	)
	machine := script.Append(&script.StateMachine{Header: testutil.Header("machine", "Main"), Begin: begin}, s0, s1)
	return testutil.Class("Machines", testutil.EntityClass, machine)
}

func TestStateMachineTransition(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, machineClass(rec))
	_, obj := spawn(t, h, rc)

	require.NoError(t, obj.SetSimulationMode(ModeGame))
	assert.Equal(t, "S0", obj.CurrentStateName(0))
	assert.True(t, obj.StateTimerActive(0, 0))
	assert.False(t, obj.StateTimerActive(1, 0))
	assert.Equal(t, []string{"S0.start"}, rec.events)

	obj.ProcessSignal(ir.NewSignal(testutil.SignalSig))

	assert.Equal(t, "S1", obj.CurrentStateName(0))
	assert.Equal(t, []string{"S0.start", "S0.stop", "S1.start"}, rec.events)
	assert.False(t, obj.StateTimerActive(0, 0), "timers of the old state stop")
	assert.True(t, obj.StateTimerActive(1, 0), "auto-start timers of the new state run")
	assert.False(t, obj.StateTimerActive(1, 1))
}

func TestLeavingGameStopsStates(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, machineClass(rec))
	_, obj := spawn(t, h, rc)

	require.NoError(t, obj.SetSimulationMode(ModeGame))
	require.NoError(t, obj.SetSimulationMode(ModeIdle))

	assert.Equal(t, ModeIdle, obj.Mode())
	assert.Equal(t, ir.NoState, obj.CurrentState(0))
	assert.Equal(t, []string{"S0.start", "S0.stop"}, rec.events)
	assert.False(t, obj.StateTimerActive(0, 0))
}

func TestTransitionRequiresCurrentState(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, machineClass(rec))
	_, obj := spawn(t, h, rc)

	// Preview never starts the machines.
	require.NoError(t, obj.SetSimulationMode(ModePreview))
	obj.ProcessSignal(ir.NewSignal(testutil.SignalSig))

	assert.Equal(t, ir.NoState, obj.CurrentState(0))
	assert.Empty(t, rec.events)
}

func TestChangeStateRejectsForeignState(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, machineClass(&recorder{}))
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	assert.False(t, obj.ChangeState(1, 0), "unknown machine")
	assert.False(t, obj.ChangeState(0, 7), "unknown state")
	assert.True(t, obj.ChangeState(0, 1))
	assert.Equal(t, "S1", obj.CurrentStateName(0))
}

// reentrantClass raises X(1) from inside the handler of X(0).
func reentrantClass(rec *recorder) *script.Class {
	g := testutil.Graph("OnX").
		Node("begin", &nodes.Begin{}).
		Node("enter", &recordNode{label: "enter", rec: rec}).
		Node("branch", &nodes.Branch{}).
		Node("param", &nodes.SignalParam{Index: 0}).
		Node("first", &nodes.Compare{Op: "=="}).
		Node("raise", &nodes.RaiseSignal{Signal: "X", Params: 1}).
		Node("one", &nodes.Constant{Value: 1}).
		Node("after", &recordNode{label: "after", rec: rec}).
		Link("begin.out", "enter.in").
		Link("enter.out", "branch.in").
		Link("param.value", "first.a").
		Link("first.result", "branch.cond").
		Link("branch.true", "raise.in").
		Link("one.value", "raise.p0").
		Link("raise.out", "after.in").
		Build()
	return testutil.Class("Reentrant", testutil.EntityClass, receiver("x", testutil.SignalX, g))
}

func TestSignalRaisedDuringDispatchIsQueued(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, reentrantClass(rec))

	var seen []ir.Signal
	_, obj := spawn(t, h, rc, WithSignalObserver(func(_ ObjectID, sig ir.Signal) {
		seen = append(seen, sig)
	}))
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	obj.ProcessSignal(ir.NewSignal(testutil.SignalX, ir.Int(0)))

	assert.Equal(t, []string{"enter:0", "after:0", "enter:1"}, rec.events)
	filtered := make([]ir.Value, 0, 2)
	for _, sig := range seen {
		if sig.Type == testutil.SignalX {
			filtered = append(filtered, sig.Param(0))
		}
	}
	assert.Equal(t, []ir.Value{ir.Int(0), ir.Int(1)}, filtered)
	assert.Zero(t, obj.QueueLen())
}

func TestSignalsIgnoredWhileIdle(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	rc := compileClass(t, h, reentrantClass(rec))
	_, obj := spawn(t, h, rc)

	obj.ProcessSignal(ir.NewSignal(testutil.SignalX, ir.Int(0)))

	assert.Empty(t, rec.events)
	assert.Zero(t, obj.QueueLen())
}

func TestFunctionCallDefersSignals(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	fire := testutil.Graph("fire").
		Node("begin", &nodes.Begin{}).
		Node("raise", &nodes.RaiseSignal{Signal: "Sig"}).
		Node("after", &recordNode{label: "fire.after", rec: rec}).
		Link("begin.out", "raise.in").
		Link("raise.out", "after.in").
		Build()
	cls := testutil.Class("Caller", testutil.EntityClass,
		&script.Function{Header: testutil.Header("function", "fire"), Public: true, Graph: fire},
		receiver("sig", testutil.SignalSig, recordGraph("sig", rec)),
	)
	rc := compileClass(t, h, cls)
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	require.True(t, obj.CallFunction("fire"))

	assert.Equal(t, []string{"fire.after", "sig"}, rec.events)
	assert.False(t, obj.CallFunction("missing"))
}

func counterClass(def int64) *script.Class {
	ctor := testutil.Graph("Counter.ctor").
		Node("begin", &nodes.Begin{}).
		Node("get", &nodes.GetVariable{Variable: "count"}).
		Node("add", &nodes.Add{}).
		Node("one", &nodes.Constant{Value: 1}).
		Node("set", &nodes.SetVariable{Variable: "count"}).
		Link("begin.out", "set.in").
		Link("get.value", "add.a").
		Link("one.value", "add.b").
		Link("add.sum", "set.value").
		Build()
	return testutil.Class("Counter", testutil.EntityClass,
		variable("count", def, true),
		variable("hidden", 0, false),
		&script.Constructor{Header: testutil.Header("constructor", "Counter"), Graph: ctor},
	)
}

func TestConstructorsRunOnEveryModeEntry(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, counterClass(3))
	_, obj := spawn(t, h, rc)

	require.NoError(t, obj.SetSimulationMode(ModePreview))
	v, ok := obj.VariableByName("count")
	require.True(t, ok)
	assert.Equal(t, ir.Int(4), v)

	// Re-entering resets variables before the constructor runs again.
	require.NoError(t, obj.SetSimulationMode(ModeGame))
	v, _ = obj.VariableByName("count")
	assert.Equal(t, ir.Int(4), v)
}

func TestOverridesApplyToPublicVariables(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, counterClass(3))
	pool := NewObjectPool(h)
	t.Cleanup(pool.Close)

	obj, err := pool.CreateObject(rc.GUID(), ir.Properties{
		"count":  ir.Float(10),
		"hidden": ir.Int(5),
		"nope":   ir.Int(1),
	})
	require.NoError(t, err)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	count, _ := obj.VariableByName("count")
	hidden, _ := obj.VariableByName("hidden")
	assert.Equal(t, ir.Int(11), count, "override is coerced, then the constructor runs")
	assert.Equal(t, ir.Int(0), hidden)
}

func TestHotReloadSwapsLiveObjects(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, counterClass(3))
	pool, obj := spawn(t, h, rc)
	idle, err := pool.CreateObject(rc.GUID(), nil)
	require.NoError(t, err)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	next := compileClass(t, h, counterClass(7))

	assert.Same(t, next, obj.Class())
	v, _ := obj.VariableByName("count")
	assert.Equal(t, ir.Int(8), v)
	assert.Equal(t, ModeGame, obj.Mode())
	assert.Same(t, rc, idle.Class(), "idle objects swap on their next mode entry")

	require.NoError(t, idle.SetSimulationMode(ModePreview))
	assert.Same(t, next, idle.Class())
}

func TestInvalidSimulationMode(t *testing.T) {
	h := testutil.NewHost()
	rc := compileClass(t, h, counterClass(0))
	_, obj := spawn(t, h, rc)

	err := obj.SetSimulationMode(SimulationMode(42))
	assert.True(t, IsRuntimeError(err, ErrCodeInvalidMode))
}

func TestParseSimulationMode(t *testing.T) {
	for _, mode := range []SimulationMode{ModeIdle, ModePreview, ModeGame} {
		got, err := ParseSimulationMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseSimulationMode("paused")
	assert.Error(t, err)
}

func TestComponentsAttachInDependencyOrder(t *testing.T) {
	h := testutil.NewHost()
	cls := testutil.Class("Parts", testutil.EntityClass,
		&script.ComponentInstance{Header: testutil.Header("component", "b"), TypeGUID: testutil.ComponentB},
		&script.ComponentInstance{
			Header:     testutil.Header("component", "a"),
			TypeGUID:   testutil.ComponentA,
			Properties: ir.Properties{"speed": ir.Int(2)},
		},
	)
	rc := compileClass(t, h, cls)
	pool, obj := spawn(t, h, rc)

	attached := obj.Entity().(*BasicEntity).Attached()
	require.Len(t, attached, 2)
	assert.Equal(t, "a", attached[0].Name)
	assert.Equal(t, "b", attached[1].Name)

	a := obj.Components()[0].(*env.PropertyComponent)
	assert.Equal(t, 1, a.Inits)
	assert.Equal(t, ir.Int(2), a.Properties["speed"])

	require.True(t, pool.DestroyObject(obj.ID()))
	assert.Equal(t, 1, a.Shutdowns)
	assert.Empty(t, obj.Entity().(*BasicEntity).Attached())
}

func TestStateActionsFollowState(t *testing.T) {
	h := testutil.NewHost()
	blink := &script.ActionInstance{Header: testutil.Header("action", "blink"), TypeGUID: testutil.ActionBlink}
	begin := testutil.Graph("Lights.begin").
		Node("begin", &nodes.Begin{}).
		Node("go", &nodes.GoToState{State: "On"}).
		Link("begin.out", "go.in").
		Build()
	on := state("On",
		blink,
		&script.Transition{
			Header: testutil.Header("transition", "On.sig"),
			Signal: testutil.SignalSig,
			Target: testutil.Header("state", "Off").ID,
		},
	)
	machine := script.Append(&script.StateMachine{Header: testutil.Header("machine", "Lights"), Begin: begin}, on, state("Off"))
	rc := compileClass(t, h, testutil.Class("Lights", testutil.EntityClass, machine))
	_, obj := spawn(t, h, rc)

	require.NoError(t, obj.SetSimulationMode(ModeGame))
	assert.True(t, obj.ActionRunning(0))

	obj.ProcessSignal(ir.NewSignal(testutil.SignalSig))
	assert.False(t, obj.ActionRunning(0))
	assert.True(t, obj.StopAction(0), "stopping an idle action is a no-op")
}

func TestRecursiveFunctionsHitDepthLimit(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	loop := testutil.Graph("loop").
		Node("begin", &nodes.Begin{}).
		Node("rec", &recordNode{label: "loop", rec: rec}).
		Node("call", &nodes.CallFunction{Function: "loop"}).
		Link("begin.out", "rec.in").
		Link("rec.out", "call.in").
		Build()
	cls := testutil.Class("Loop", testutil.EntityClass,
		&script.Function{Header: testutil.Header("function", "loop"), Public: true, Graph: loop},
	)
	rc := compileClass(t, h, cls)
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	assert.True(t, obj.CallFunction("loop"))
	assert.Len(t, rec.events, maxCallDepth)
}

func TestSignalRaisedByReceiverRunsAfterTransition(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	begin := testutil.Graph("Main.begin").
		Node("begin", &nodes.Begin{}).
		Node("go", &nodes.GoToState{State: "S0"}).
		Link("begin.out", "go.in").
		Build()
	raise := testutil.Graph("S0.raise").
		Node("begin", &nodes.Begin{}).
		Node("raise", &nodes.RaiseSignal{Signal: "X"}).
		Link("begin.out", "raise.in").
		Build()
	s0 := state("S0",
		receiver("S0.start", env.SignalStart, recordGraph("S0.start", rec)),
		receiver("S0.stop", env.SignalStop, recordGraph("S0.stop", rec)),
		receiver("S0.raise", testutil.SignalSig, raise),
		&script.Transition{
			Header: testutil.Header("transition", "S0.sig"),
			Signal: testutil.SignalSig,
			Target: testutil.Header("state", "S1").ID,
		},
	)
	s1 := state("S1",
		receiver("S1.start", env.SignalStart, recordGraph("S1.start", rec)),
		receiver("S1.nested", testutil.SignalX, recordGraph("nested", rec)),
	)
	machine := script.Append(&script.StateMachine{Header: testutil.Header("machine", "Main"), Begin: begin}, s0, s1)
	rc := compileClass(t, h, testutil.Class("Nested", testutil.EntityClass, machine))
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	obj.ProcessSignal(ir.NewSignal(testutil.SignalSig))

	assert.Equal(t, "S1", obj.CurrentStateName(0))
	assert.Equal(t, []string{"S0.start", "S0.stop", "S1.start", "nested"}, rec.events,
		"the queued signal is handled by the state entered by the transition")
	assert.Zero(t, obj.QueueLen())
}

func TestAbortedTransitionGraphIsSkipped(t *testing.T) {
	h := testutil.NewHost()
	rec := &recorder{}
	begin := testutil.Graph("Main.begin").
		Node("begin", &nodes.Begin{}).
		Node("go", &nodes.GoToState{State: "S0"}).
		Link("begin.out", "go.in").
		Build()
	// then0 selects S1, then1 runs past the step quota.
	runaway := testutil.Graph("S0.runaway").
		Node("begin", &nodes.Begin{}).
		Node("seq", &nodes.Sequence{Count: 2}).
		Node("go", &nodes.GoToState{State: "S1"}).
		Node("r1", &recordNode{label: "r1", rec: rec}).
		Node("r2", &recordNode{label: "r2", rec: rec}).
		Node("r3", &recordNode{label: "r3", rec: rec}).
		Node("r4", &recordNode{label: "r4", rec: rec}).
		Node("r5", &recordNode{label: "r5", rec: rec}).
		Link("begin.out", "seq.in").
		Link("seq.then0", "go.in").
		Link("seq.then1", "r1.in").
		Link("r1.out", "r2.in").
		Link("r2.out", "r3.in").
		Link("r3.out", "r4.in").
		Link("r4.out", "r5.in").
		Build()
	s0 := state("S0", &script.Transition{
		Header: testutil.Header("transition", "S0.runaway"),
		Signal: testutil.SignalSig,
		Graph:  runaway,
	})
	s1 := state("S1")
	machine := script.Append(&script.StateMachine{Header: testutil.Header("machine", "Main"), Begin: begin}, s0, s1)
	rc := compileClass(t, h, testutil.Class("Runaway", testutil.EntityClass, machine))
	_, obj := spawn(t, h, rc, WithMaxGraphSteps(4))
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	obj.ProcessSignal(ir.NewSignal(testutil.SignalSig))

	assert.Equal(t, "S0", obj.CurrentStateName(0), "a partial result never changes state")
	assert.NotContains(t, rec.events, "r5")
}

func TestTimerStoppedByTransitionDoesNotFire(t *testing.T) {
	h := testutil.NewHost()
	begin := testutil.Graph("Main.begin").
		Node("begin", &nodes.Begin{}).
		Node("go", &nodes.GoToState{State: "S0"}).
		Link("begin.out", "go.in").
		Build()
	// A and B expire on the same frame. A fires first and leaves S0, which
	// stops B before its callback runs.
	s0 := state("S0",
		timer("A", 2, true),
		timer("B", 2, true),
		&script.Transition{
			Header: testutil.Header("transition", "S0.A"),
			Signal: testutil.Header("timer", "A").ID,
			Target: testutil.Header("state", "S1").ID,
		},
	)
	s1 := state("S1", &script.Transition{
		Header: testutil.Header("transition", "S1.B"),
		Signal: testutil.Header("timer", "B").ID,
		Target: testutil.Header("state", "S2").ID,
	})
	s2 := state("S2")
	machine := script.Append(&script.StateMachine{Header: testutil.Header("machine", "Main"), Begin: begin}, s0, s1, s2)
	rc := compileClass(t, h, testutil.Class("Timers", testutil.EntityClass, machine))
	_, obj := spawn(t, h, rc)
	require.NoError(t, obj.SetSimulationMode(ModeGame))

	sim := NewSimulation(h)
	sim.Step(DefaultFrameTime)
	sim.Step(DefaultFrameTime)

	assert.Equal(t, "S1", obj.CurrentStateName(0))
	assert.False(t, obj.StateTimerActive(0, 1))
}
