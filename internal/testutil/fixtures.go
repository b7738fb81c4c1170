// Package testutil provides fixture builders shared by package tests.
//
// Every fixture GUID is derived with uuid.NewSHA1 from a readable path, so
// golden files stay stable across runs and machines.
package testutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// Namespace seeds GUIDFor.
var Namespace = uuid.MustParse("8d3c1a52-4b7e-4f0a-9c61-2f5e7d9a0b11")

// GUIDFor returns the fixture GUID for path.
func GUIDFor(path string) ir.GUID {
	return uuid.NewSHA1(Namespace, []byte(path))
}

// Fixture env descriptors.
var (
	EntityClass = GUIDFor("env/class/Entity")

	// ComponentA is a singleton with no dependencies.
	ComponentA = GUIDFor("env/component/A")
	// ComponentB hard-depends on ComponentA.
	ComponentB = GUIDFor("env/component/B")
	// ComponentC soft-depends on ComponentB.
	ComponentC = GUIDFor("env/component/C")

	ActionBlink = GUIDFor("env/action/Blink")

	SignalSig = GUIDFor("env/signal/Sig")
	SignalX   = GUIDFor("env/signal/X")
)

// NewEnv returns a registry with the built-ins and the fixture descriptors.
func NewEnv() *env.Registry {
	reg := env.NewRegistry()
	must(reg.RegisterClass(env.ClassDesc{
		GUID: EntityClass, Name: "Entity",
		DefaultProperties: ir.Properties{"visible": ir.Bool(true)},
	}))
	must(reg.RegisterComponent(env.ComponentDesc{GUID: ComponentA, Name: "A", Singleton: true}))
	must(reg.RegisterComponent(env.ComponentDesc{
		GUID: ComponentB, Name: "B", Singleton: true,
		Interactions: []env.Interaction{{Kind: env.HardDependency, Component: ComponentA}},
	}))
	must(reg.RegisterComponent(env.ComponentDesc{
		GUID: ComponentC, Name: "C",
		Interactions: []env.Interaction{{Kind: env.SoftDependency, Component: ComponentB}},
	}))
	must(reg.RegisterAction(env.ActionDesc{GUID: ActionBlink, Name: "Blink"}))
	must(reg.RegisterSignal(env.SignalDesc{GUID: SignalSig, Name: "Sig"}))
	must(reg.RegisterSignal(env.SignalDesc{GUID: SignalX, Name: "X", Params: []ir.ValueKind{ir.KindInt}}))
	return reg
}

// NewHost returns a host context over NewEnv.
func NewHost() *host.Context {
	return host.New(NewEnv(), nil)
}

// Header builds an element header whose GUID derives from kind and name.
func Header(kind, name string) script.Header {
	return script.Header{ID: GUIDFor(kind + "/" + name), Label: name}
}

// Class builds a script class deriving from base.
func Class(name string, base ir.GUID, children ...script.Element) *script.Class {
	cls := &script.Class{Header: Header("class", name)}
	script.Append(cls, &script.Base{Header: Header("base", name), Target: base})
	return script.Append(cls, children...)
}

// GraphBuilder assembles a script graph by node name.
type GraphBuilder struct {
	g *script.Graph
}

// Graph starts a graph called name.
func Graph(name string) *GraphBuilder {
	return &GraphBuilder{g: &script.Graph{GUID: GUIDFor("graph/" + name), Name: name}}
}

// Node adds a node.
func (b *GraphBuilder) Node(name string, impl script.NodeImpl) *GraphBuilder {
	guid := GUIDFor("graph/" + b.g.Name + "/node/" + name)
	b.g.Nodes = append(b.g.Nodes, script.NewNode(guid, name, impl))
	return b
}

// Link connects "node.port" to "node.port". Unknown node names panic.
func (b *GraphBuilder) Link(from, to string) *GraphBuilder {
	srcNode, srcPort := b.endpoint(from)
	dstNode, dstPort := b.endpoint(to)
	b.g.Links = append(b.g.Links, script.Link{SrcNode: srcNode, SrcPort: srcPort, DstNode: dstNode, DstPort: dstPort})
	return b
}

func (b *GraphBuilder) endpoint(ref string) (ir.GUID, string) {
	node, port, ok := strings.Cut(ref, ".")
	if !ok {
		panic(fmt.Sprintf("testutil: endpoint %q is not node.port", ref))
	}
	for _, n := range b.g.Nodes {
		if n.Name == node {
			return n.GUID, port
		}
	}
	panic(fmt.Sprintf("testutil: unknown node %q in graph %s", node, b.g.Name))
}

// Build returns the graph.
func (b *GraphBuilder) Build() *script.Graph { return b.g }

func must(err error) {
	if err != nil {
		panic(err)
	}
}
