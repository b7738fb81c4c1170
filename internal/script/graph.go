package script

import (
	"log/slog"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
)

// Graph is a source node/link network owned by one element.
type Graph struct {
	GUID  ir.GUID
	Name  string
	Nodes []*Node
	Links []Link
}

// Node is one script node. Inputs and Outputs advertise the ports the
// node's behavior exposes.
type Node struct {
	GUID    ir.GUID
	Name    string
	Inputs  []Port
	Outputs []Port
	Impl    NodeImpl
}

// Port is a node port. Flags are the advertised capabilities: PortSignal,
// PortFlow or PortData, optionally with PortPull on data outputs of pure
// nodes. Default is the constant value of an unlinked data input.
type Port struct {
	ID      string
	Flags   ir.PortFlags
	Default ir.Value
}

// Link connects an output port to an input port, by node GUID and port id.
type Link struct {
	SrcNode ir.GUID
	SrcPort string
	DstNode ir.GUID
	DstPort string
}

// NodeImpl is the behavior behind a script node.
//
// Compile is invoked once per graph compile. It must bind an execution
// callback through nc, and may bind constant data.
type NodeImpl interface {
	Ports() (inputs, outputs []Port)
	Compile(ctx CompileContext, nc NodeCompiler) error
}

// NodeCompiler collects what a node binds during Compile.
type NodeCompiler interface {
	BindCallback(cb ir.NodeCallback)
	BindData(v ir.Value)
}

// CompileContext resolves class-level names for nodes. Every lookup
// returns -1 when the name is unknown.
type CompileContext interface {
	Env() *env.Registry
	Logger() *slog.Logger
	VariableOffset(name string) int
	StateIndex(name string) int
	TimerIndex(name string) int
	ActionIndex(name string) int
	// FunctionIndex resolves a function and schedules its graph for
	// compilation if it was not already scheduled.
	FunctionIndex(name string) int
	SignalGUID(name string) (ir.GUID, bool)
}

// NewNode builds a node whose ports come from impl.
func NewNode(guid ir.GUID, name string, impl NodeImpl) *Node {
	in, out := impl.Ports()
	return &Node{GUID: guid, Name: name, Inputs: in, Outputs: out, Impl: impl}
}

// FindNode returns the node with the given GUID or nil.
func (g *Graph) FindNode(guid ir.GUID) *Node {
	for _, n := range g.Nodes {
		if n.GUID == guid {
			return n
		}
	}
	return nil
}

// PortIndex returns the index of the port with the given id, or -1.
func PortIndex(ports []Port, id string) int {
	for i, p := range ports {
		if p.ID == id {
			return i
		}
	}
	return -1
}
