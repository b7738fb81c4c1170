package ir

import (
	"fmt"
	"log/slog"
	"slices"
)

// PortFlags classifies a compiled node port.
//
// The compiler starts from the capabilities a script node advertises and
// refines them while resolving links: data inputs fed by a link become
// Reference (and Pull when the producer is pull-only) and outputs lose
// Unused once a link proves them live.
type PortFlags uint8

const (
	PortSignal PortFlags = 1 << iota
	PortFlow
	PortData
	PortReference
	PortPull
	PortUnused
)

// Has reports whether all bits of f are set.
func (p PortFlags) Has(f PortFlags) bool { return p&f == f }

func (p PortFlags) String() string {
	names := []struct {
		flag PortFlags
		name string
	}{
		{PortSignal, "signal"},
		{PortFlow, "flow"},
		{PortData, "data"},
		{PortReference, "reference"},
		{PortPull, "pull"},
		{PortUnused, "unused"},
	}
	out := ""
	for _, n := range names {
		if p.Has(n.flag) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// NoState is the state index of a state machine that is in no state.
const NoState = -1

// Outcome is what a node callback returns: the output port whose execution
// link should be followed next, or Stop.
type Outcome struct {
	Output int
}

// Stop ends the current execution chain.
var Stop = Outcome{Output: -1}

// Continue follows the execution link leaving output port.
func Continue(port int) Outcome { return Outcome{Output: port} }

// ActivationKind says why a node callback is being invoked.
type ActivationKind int

const (
	// ActivateSignal starts a graph at its entry node.
	ActivateSignal ActivationKind = iota
	// ActivateFlow continues execution into an input port.
	ActivateFlow
	// ActivatePull evaluates a pure node because a consumer read its output.
	ActivatePull
)

// Activation identifies the node and input port being executed.
type Activation struct {
	Kind ActivationKind
	Node int
	Port int
}

// NodeCallback is the execution function a node binds at compile time.
type NodeCallback func(ctx ExecContext) Outcome

// ExecContext is the view a node callback has of its graph instance.
type ExecContext interface {
	// Node is the index of the executing node.
	Node() int
	// Activation describes which input triggered the callback.
	Activation() Activation
	// Input reads input port i, following data and pull links.
	Input(port int) Value
	// SetOutput stores a value on output port i.
	SetOutput(port int, v Value)
	// Trigger runs the execution chain leaving output port to completion
	// before returning. Nodes with several execution outputs use it.
	Trigger(port int)
	// Data returns the constant data the node bound at compile time.
	Data() Value
	// Param returns parameter i of the signal or function call being executed.
	Param(i int) Value
	// Target is the object the graph runs against.
	Target() Target
	// SetTargetState records a state transition result.
	SetTargetState(state int)
	// Logger returns the logger for diagnostics output.
	Logger() *slog.Logger
}

// Target is the object surface graph nodes act on.
type Target interface {
	ProcessSignal(sig Signal)
	Variable(offset int) Value
	SetVariable(offset int, v Value) bool
	StartTimer(idx int) bool
	StopTimer(idx int) bool
	StartAction(idx int) bool
	StopAction(idx int) bool
	ExecuteFunction(idx int, params []Value) bool
	GUID() GUID
}

// RuntimeNode is one materialized node.
type RuntimeNode struct {
	GUID      GUID
	Name      string
	Callback  NodeCallback
	InputIDs  []string
	OutputIDs []string

	// DataOffset is the scratchpad slot of the node's constant data, -1 if none.
	DataOffset int
	// InputOffsets and OutputOffsets hold one scratchpad slot per port.
	InputOffsets  []int
	OutputOffsets []int
	// InputFlags and OutputFlags keep the final port classification.
	InputFlags  []PortFlags
	OutputFlags []PortFlags
}

// Link connects (SrcNode, SrcPort) output to (DstNode, DstPort) input.
type Link struct {
	SrcNode int
	SrcPort int
	DstNode int
	DstPort int
}

func (l Link) String() string {
	return fmt.Sprintf("%d.%d->%d.%d", l.SrcNode, l.SrcPort, l.DstNode, l.DstPort)
}

type portKey struct{ node, port int }

// RuntimeGraph is one compiled node/link network.
//
// It is produced once by the compiler and executed many times through
// per-object graph instances, which copy the scratchpad and never mutate
// the graph itself.
type RuntimeGraph struct {
	guid GUID
	name string

	nodes       []RuntimeNode
	signalLinks []Link
	flowLinks   []Link
	dataLinks   []Link
	pullLinks   []Link
	scratch     Scratchpad
	entry       int

	// Lookup tables built by Finalize
	execTargets  map[portKey]Link
	inputSources map[portKey]inputSource
	finalized    bool
}

type inputSource struct {
	link Link
	pull bool
}

// NewRuntimeGraph creates an empty graph.
func NewRuntimeGraph(guid GUID, name string) *RuntimeGraph {
	return &RuntimeGraph{guid: guid, name: name, entry: -1}
}

func (g *RuntimeGraph) GUID() GUID   { return g.guid }
func (g *RuntimeGraph) Name() string { return g.name }

// AddNode appends a node and returns its index.
func (g *RuntimeGraph) AddNode(n RuntimeNode) int {
	g.mustBeMutable()
	g.nodes = append(g.nodes, n)
	return len(g.nodes) - 1
}

// Nodes returns the node table. Callers must not modify it.
func (g *RuntimeGraph) Nodes() []RuntimeNode { return g.nodes }

// Node returns node i.
func (g *RuntimeGraph) Node(i int) *RuntimeNode {
	if i < 0 || i >= len(g.nodes) {
		return nil
	}
	return &g.nodes[i]
}

// FindNode returns the index of the node with the given GUID, or -1.
func (g *RuntimeGraph) FindNode(guid GUID) int {
	for i := range g.nodes {
		if g.nodes[i].GUID == guid {
			return i
		}
	}
	return -1
}

func (g *RuntimeGraph) AddSignalLink(l Link) {
	g.mustBeMutable()
	g.signalLinks = append(g.signalLinks, l)
}

func (g *RuntimeGraph) AddFlowLink(l Link) {
	g.mustBeMutable()
	g.flowLinks = append(g.flowLinks, l)
}

func (g *RuntimeGraph) AddDataLink(l Link) {
	g.mustBeMutable()
	g.dataLinks = append(g.dataLinks, l)
}

func (g *RuntimeGraph) AddPullLink(l Link) {
	g.mustBeMutable()
	g.pullLinks = append(g.pullLinks, l)
}

func (g *RuntimeGraph) SignalLinks() []Link { return g.signalLinks }
func (g *RuntimeGraph) FlowLinks() []Link   { return g.flowLinks }
func (g *RuntimeGraph) DataLinks() []Link   { return g.dataLinks }
func (g *RuntimeGraph) PullLinks() []Link   { return g.pullLinks }

// Scratchpad returns the graph's constant store.
func (g *RuntimeGraph) Scratchpad() *Scratchpad { return &g.scratch }

// SetEntry sets the node execution starts at when the graph is activated.
func (g *RuntimeGraph) SetEntry(node int) { g.mustBeMutable(); g.entry = node }

// Entry returns the entry node index, -1 if the graph has none.
func (g *RuntimeGraph) Entry() int { return g.entry }

// ExecTarget returns the signal or flow link leaving (node, port).
// Only valid after Finalize.
func (g *RuntimeGraph) ExecTarget(node, port int) (Link, bool) {
	l, ok := g.execTargets[portKey{node, port}]
	return l, ok
}

// InputSource returns the data or pull link feeding (node, port) and
// whether it is a pull link. Only valid after Finalize.
func (g *RuntimeGraph) InputSource(node, port int) (Link, bool, bool) {
	src, ok := g.inputSources[portKey{node, port}]
	return src.link, src.pull, ok
}

// Finalized reports whether Finalize has run.
func (g *RuntimeGraph) Finalized() bool { return g.finalized }

// Finalize builds the lookup tables and trims storage. Idempotent.
func (g *RuntimeGraph) Finalize() {
	if g.finalized {
		return
	}
	g.nodes = slices.Clip(g.nodes)
	g.signalLinks = slices.Clip(g.signalLinks)
	g.flowLinks = slices.Clip(g.flowLinks)
	g.dataLinks = slices.Clip(g.dataLinks)
	g.pullLinks = slices.Clip(g.pullLinks)
	g.scratch.Trim()

	g.execTargets = make(map[portKey]Link, len(g.signalLinks)+len(g.flowLinks))
	for _, l := range g.signalLinks {
		g.execTargets[portKey{l.SrcNode, l.SrcPort}] = l
	}
	for _, l := range g.flowLinks {
		g.execTargets[portKey{l.SrcNode, l.SrcPort}] = l
	}

	g.inputSources = make(map[portKey]inputSource, len(g.dataLinks)+len(g.pullLinks))
	for _, l := range g.dataLinks {
		g.inputSources[portKey{l.DstNode, l.DstPort}] = inputSource{link: l}
	}
	for _, l := range g.pullLinks {
		g.inputSources[portKey{l.DstNode, l.DstPort}] = inputSource{link: l, pull: true}
	}
	g.finalized = true
}

func (g *RuntimeGraph) mustBeMutable() {
	if g.finalized {
		panic("ir: RuntimeGraph modified after Finalize")
	}
}
