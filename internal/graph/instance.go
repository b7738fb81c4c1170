package graph

import (
	"log/slog"

	"github.com/roach88/graphscript/internal/ir"
)

// Result reports the outcome of one execution.
type Result struct {
	// TargetState is the state index a GoToState node selected, or
	// ir.NoState when none did.
	TargetState int
	Steps       int
}

// Instance is the per-object execution state of one RuntimeGraph.
type Instance struct {
	graph    *ir.RuntimeGraph
	scratch  ir.Scratchpad
	maxSteps int
	logger   *slog.Logger
}

// NewInstance creates an instance of a finalized graph.
func NewInstance(g *ir.RuntimeGraph, maxSteps int, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instance{
		graph:    g,
		scratch:  g.Scratchpad().Clone(),
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Graph returns the compiled graph.
func (in *Instance) Graph() *ir.RuntimeGraph { return in.graph }

// Scratchpad exposes the instance's port values, for tests and tracing.
func (in *Instance) Scratchpad() *ir.Scratchpad { return &in.scratch }

// Reset restores every port value to its compiled constant.
func (in *Instance) Reset() {
	in.scratch.Reset(in.graph.Scratchpad())
}

// Execute runs the graph against target.
//
// A signal activation with a negative node starts at the graph entry; a
// graph without an entry does nothing.
func (in *Instance) Execute(target ir.Target, params []ir.Value, act ir.Activation) (Result, error) {
	run := &execution{
		in:     in,
		target: target,
		params: params,
		quota:  NewQuota(in.maxSteps),
		state:  ir.NoState,
	}
	if act.Kind == ir.ActivateSignal && act.Node < 0 {
		act.Node = in.graph.Entry()
	}
	if act.Node >= 0 {
		run.chain(act)
	}
	res := Result{TargetState: run.state, Steps: run.quota.Current()}
	if run.err != nil {
		in.logger.Warn("graph execution aborted",
			"graph", in.graph.Name(),
			"steps", res.Steps,
			"error", run.err)
	}
	return res, run.err
}

// execution is the state of one Execute call.
type execution struct {
	in     *Instance
	target ir.Target
	params []ir.Value
	quota  *Quota
	state  int
	err    error
}

// chain runs act and every node reached from it through execution links.
func (x *execution) chain(act ir.Activation) {
	for x.err == nil {
		out := x.invoke(act)
		if x.err != nil || out.Output < 0 {
			return
		}
		link, ok := x.in.graph.ExecTarget(act.Node, out.Output)
		if !ok {
			return
		}
		act = ir.Activation{Kind: ir.ActivateFlow, Node: link.DstNode, Port: link.DstPort}
	}
}

func (x *execution) invoke(act ir.Activation) ir.Outcome {
	if err := x.quota.Check(x.in.graph.GUID()); err != nil {
		x.err = err
		return ir.Stop
	}
	node := x.in.graph.Node(act.Node)
	if node == nil || node.Callback == nil {
		return ir.Stop
	}
	return node.Callback(&frame{x: x, node: node, act: act})
}

// frame is the ExecContext handed to one callback invocation.
type frame struct {
	x    *execution
	node *ir.RuntimeNode
	act  ir.Activation
}

func (f *frame) Node() int                 { return f.act.Node }
func (f *frame) Activation() ir.Activation { return f.act }
func (f *frame) Target() ir.Target         { return f.x.target }
func (f *frame) SetTargetState(state int)  { f.x.state = state }
func (f *frame) Logger() *slog.Logger      { return f.x.in.logger }

func (f *frame) Data() ir.Value {
	return f.x.in.scratch.Get(f.node.DataOffset)
}

func (f *frame) Param(i int) ir.Value {
	if i < 0 || i >= len(f.x.params) {
		return ir.Null{}
	}
	return f.x.params[i]
}

func (f *frame) Input(port int) ir.Value {
	g := f.x.in.graph
	link, pull, ok := g.InputSource(f.act.Node, port)
	if !ok {
		if port < 0 || port >= len(f.node.InputOffsets) {
			return ir.Null{}
		}
		return f.x.in.scratch.Get(f.node.InputOffsets[port])
	}
	if pull {
		f.x.invoke(ir.Activation{Kind: ir.ActivatePull, Node: link.SrcNode, Port: link.SrcPort})
	}
	src := g.Node(link.SrcNode)
	if src == nil || link.SrcPort >= len(src.OutputOffsets) {
		return ir.Null{}
	}
	return f.x.in.scratch.Get(src.OutputOffsets[link.SrcPort])
}

func (f *frame) SetOutput(port int, v ir.Value) {
	if port < 0 || port >= len(f.node.OutputOffsets) {
		return
	}
	f.x.in.scratch.Set(f.node.OutputOffsets[port], v)
}

func (f *frame) Trigger(port int) {
	if f.x.err != nil {
		return
	}
	link, ok := f.x.in.graph.ExecTarget(f.act.Node, port)
	if !ok {
		return
	}
	f.x.chain(ir.Activation{Kind: ir.ActivateFlow, Node: link.DstNode, Port: link.DstPort})
}
