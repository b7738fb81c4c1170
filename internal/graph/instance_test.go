package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/ir"
)

type nopTarget struct{ vars ir.Scratchpad }

func (*nopTarget) ProcessSignal(ir.Signal)                {}
func (t *nopTarget) Variable(off int) ir.Value            { return t.vars.Get(off) }
func (t *nopTarget) SetVariable(off int, v ir.Value) bool { return t.vars.Set(off, v) }
func (*nopTarget) StartTimer(int) bool                    { return true }
func (*nopTarget) StopTimer(int) bool                     { return true }
func (*nopTarget) StartAction(int) bool                   { return true }
func (*nopTarget) StopAction(int) bool                    { return true }
func (*nopTarget) ExecuteFunction(int, []ir.Value) bool   { return true }
func (*nopTarget) GUID() ir.GUID                          { return ir.NilGUID }

// counterGraph builds: entry -> add(const 2, pull source) -> record.
// The pull source counts how often it is evaluated.
func counterGraph(t *testing.T, trace *[]string, pulls *int) *ir.RuntimeGraph {
	t.Helper()
	g := ir.NewRuntimeGraph(uuid.New(), "counter")
	sp := g.Scratchpad()

	entry := g.AddNode(ir.RuntimeNode{
		Name: "entry", DataOffset: -1,
		OutputIDs: []string{"out"}, OutputFlags: []ir.PortFlags{ir.PortSignal}, OutputOffsets: []int{-1},
		Callback: func(ctx ir.ExecContext) ir.Outcome {
			*trace = append(*trace, "entry")
			return ir.Continue(0)
		},
	})

	source := g.AddNode(ir.RuntimeNode{
		Name: "source", DataOffset: -1,
		OutputIDs: []string{"value"}, OutputFlags: []ir.PortFlags{ir.PortData | ir.PortPull}, OutputOffsets: []int{sp.Add(ir.Int(0))},
		Callback: func(ctx ir.ExecContext) ir.Outcome {
			*pulls++
			ctx.SetOutput(0, ir.Int(int64(*pulls*10)))
			return ir.Stop
		},
	})

	add := g.AddNode(ir.RuntimeNode{
		Name: "add", DataOffset: -1,
		InputIDs:      []string{"in", "a", "b"},
		InputFlags:    []ir.PortFlags{ir.PortFlow, ir.PortData, ir.PortReference | ir.PortPull},
		InputOffsets:  []int{-1, sp.Add(ir.Int(2)), -1},
		OutputIDs:     []string{"out", "sum"},
		OutputFlags:   []ir.PortFlags{ir.PortFlow, ir.PortData},
		OutputOffsets: []int{-1, sp.Add(ir.Int(0))},
		Callback: func(ctx ir.ExecContext) ir.Outcome {
			a, _ := ir.AsInt(ctx.Input(1))
			b, _ := ir.AsInt(ctx.Input(2))
			ctx.SetOutput(1, ir.Int(a+b))
			*trace = append(*trace, "add")
			return ir.Continue(0)
		},
	})

	record := g.AddNode(ir.RuntimeNode{
		Name: "record", DataOffset: -1,
		InputIDs:     []string{"in", "value"},
		InputFlags:   []ir.PortFlags{ir.PortFlow, ir.PortReference},
		InputOffsets: []int{-1, -1},
		Callback: func(ctx ir.ExecContext) ir.Outcome {
			v, _ := ir.AsInt(ctx.Input(1))
			*trace = append(*trace, "record:"+ir.Format(ir.Int(v)))
			ctx.SetTargetState(3)
			return ir.Stop
		},
	})

	g.AddSignalLink(ir.Link{SrcNode: entry, SrcPort: 0, DstNode: add, DstPort: 0})
	g.AddFlowLink(ir.Link{SrcNode: add, SrcPort: 0, DstNode: record, DstPort: 0})
	g.AddPullLink(ir.Link{SrcNode: source, SrcPort: 0, DstNode: add, DstPort: 2})
	g.AddDataLink(ir.Link{SrcNode: add, SrcPort: 1, DstNode: record, DstPort: 1})
	g.SetEntry(entry)
	g.Finalize()
	return g
}

func TestExecuteFollowsLinks(t *testing.T) {
	var trace []string
	pulls := 0
	in := NewInstance(counterGraph(t, &trace, &pulls), 0, nil)

	res, err := in.Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)

	assert.Equal(t, []string{"entry", "add", "record:12"}, trace)
	assert.Equal(t, 1, pulls)
	assert.Equal(t, 3, res.TargetState)
	assert.Equal(t, 4, res.Steps, "three chain nodes plus one pull")
}

func TestPullReevaluatesEachExecution(t *testing.T) {
	var trace []string
	pulls := 0
	in := NewInstance(counterGraph(t, &trace, &pulls), 0, nil)

	_, err := in.Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	_, err = in.Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)

	assert.Equal(t, 2, pulls)
	assert.Equal(t, "record:22", trace[len(trace)-1])
}

func TestResetRestoresConstants(t *testing.T) {
	var trace []string
	pulls := 0
	g := counterGraph(t, &trace, &pulls)
	in := NewInstance(g, 0, nil)

	_, err := in.Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	assert.NotEqual(t, g.Scratchpad().Values(), in.Scratchpad().Values())

	in.Reset()
	assert.Equal(t, g.Scratchpad().Values(), in.Scratchpad().Values())
}

func TestInstancesAreIsolated(t *testing.T) {
	var trace []string
	pulls := 0
	g := counterGraph(t, &trace, &pulls)
	a := NewInstance(g, 0, nil)
	b := NewInstance(g, 0, nil)

	_, err := a.Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	assert.Equal(t, g.Scratchpad().Values(), b.Scratchpad().Values())
}

func TestExecuteWithoutEntry(t *testing.T) {
	g := ir.NewRuntimeGraph(uuid.New(), "empty")
	g.Finalize()

	res, err := NewInstance(g, 0, nil).Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	assert.Equal(t, ir.NoState, res.TargetState)
	assert.Equal(t, 0, res.Steps)
}

func TestTriggerRunsOutputsInOrder(t *testing.T) {
	var trace []string
	g := ir.NewRuntimeGraph(uuid.New(), "sequence")
	seq := g.AddNode(ir.RuntimeNode{
		Name: "seq", DataOffset: -1, OutputOffsets: []int{-1, -1},
		Callback: func(ctx ir.ExecContext) ir.Outcome {
			ctx.Trigger(0)
			ctx.Trigger(1)
			return ir.Stop
		},
	})
	mk := func(name string) int {
		return g.AddNode(ir.RuntimeNode{Name: name, DataOffset: -1, Callback: func(ctx ir.ExecContext) ir.Outcome {
			trace = append(trace, name)
			return ir.Stop
		}})
	}
	first, second := mk("first"), mk("second")
	g.AddSignalLink(ir.Link{SrcNode: seq, SrcPort: 0, DstNode: first})
	g.AddSignalLink(ir.Link{SrcNode: seq, SrcPort: 1, DstNode: second})
	g.SetEntry(seq)
	g.Finalize()

	_, err := NewInstance(g, 0, nil).Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, trace)
}

func TestQuotaAbortsLoops(t *testing.T) {
	g := ir.NewRuntimeGraph(uuid.New(), "loop")
	a := g.AddNode(ir.RuntimeNode{Name: "a", DataOffset: -1, Callback: func(ir.ExecContext) ir.Outcome { return ir.Continue(0) }})
	b := g.AddNode(ir.RuntimeNode{Name: "b", DataOffset: -1, Callback: func(ir.ExecContext) ir.Outcome { return ir.Continue(0) }})
	g.AddFlowLink(ir.Link{SrcNode: a, SrcPort: 0, DstNode: b})
	g.AddFlowLink(ir.Link{SrcNode: b, SrcPort: 0, DstNode: a})
	g.SetEntry(a)
	g.Finalize()

	res, err := NewInstance(g, 50, nil).Execute(&nopTarget{}, nil, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.Equal(t, 51, res.Steps)
}

func TestParamsReadable(t *testing.T) {
	var got ir.Value
	g := ir.NewRuntimeGraph(uuid.New(), "params")
	g.SetEntry(g.AddNode(ir.RuntimeNode{Name: "p", DataOffset: -1, Callback: func(ctx ir.ExecContext) ir.Outcome {
		got = ctx.Param(1)
		assert.Equal(t, ir.Null{}, ctx.Param(9))
		return ir.Stop
	}}))
	g.Finalize()

	_, err := NewInstance(g, 0, nil).Execute(&nopTarget{}, []ir.Value{ir.Int(1), ir.String("x")}, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
	require.NoError(t, err)
	assert.Equal(t, ir.String("x"), got)
}

func TestQuota(t *testing.T) {
	q := NewQuota(2)
	require.NoError(t, q.Check(ir.NilGUID))
	require.NoError(t, q.Check(ir.NilGUID))
	err := q.Check(ir.NilGUID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 steps > 2 limit")
	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.Equal(t, DefaultMaxSteps, NewQuota(0).MaxSteps())
}
