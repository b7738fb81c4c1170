package script

import (
	"github.com/roach88/graphscript/internal/ir"
)

// Kind enumerates element kinds.
type Kind int

const (
	KindClass Kind = iota
	KindBase
	KindComponentInstance
	KindConstructor
	KindFunction
	KindStateMachine
	KindState
	KindVariable
	KindTimer
	KindSignalReceiver
	KindTransition
	KindActionInstance
)

var kindNames = [...]string{
	KindClass:             "class",
	KindBase:              "base",
	KindComponentInstance: "component",
	KindConstructor:       "constructor",
	KindFunction:          "function",
	KindStateMachine:      "state_machine",
	KindState:             "state",
	KindVariable:          "variable",
	KindTimer:             "timer",
	KindSignalReceiver:    "receiver",
	KindTransition:        "transition",
	KindActionInstance:    "action",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Element is a node of the script tree.
type Element interface {
	Kind() Kind
	GUID() ir.GUID
	Name() string
	Parent() Element
	Children() []Element
	Accept(v Visitor) error
	setParent(p Element)
}

// Visitor handles every element kind.
type Visitor interface {
	VisitClass(*Class) error
	VisitBase(*Base) error
	VisitComponentInstance(*ComponentInstance) error
	VisitConstructor(*Constructor) error
	VisitFunction(*Function) error
	VisitStateMachine(*StateMachine) error
	VisitState(*State) error
	VisitVariable(*Variable) error
	VisitTimer(*Timer) error
	VisitSignalReceiver(*SignalReceiver) error
	VisitTransition(*Transition) error
	VisitActionInstance(*ActionInstance) error
}

// Header carries the fields every element shares.
type Header struct {
	ID       ir.GUID
	Label    string
	parent   Element
	children []Element
}

func (h *Header) GUID() ir.GUID         { return h.ID }
func (h *Header) Name() string          { return h.Label }
func (h *Header) Parent() Element       { return h.parent }
func (h *Header) Children() []Element   { return h.children }
func (h *Header) setParent(p Element)   { h.parent = p }
func (h *Header) appendChild(e Element) { h.children = append(h.children, e) }

// Append adds children to parent and returns parent.
func Append[E interface {
	Element
	appendChild(Element)
}](parent E, children ...Element) E {
	for _, c := range children {
		c.setParent(parent)
		parent.appendChild(c)
	}
	return parent
}

// Class is the root of a script class.
type Class struct {
	Header
	// File is the script path the class was loaded from, used to qualify
	// the display name.
	File string
}

// Base names the class this one derives from: an env class or another
// script class.
type Base struct {
	Header
	Target ir.GUID
}

// ComponentInstance places a native component on the object. Nested
// component instances are children of their parent instance.
type ComponentInstance struct {
	Header
	TypeGUID   ir.GUID
	Public     bool
	Transform  ir.Transform
	Properties ir.Properties
}

// Constructor runs Graph whenever the object enters a simulation mode.
type Constructor struct {
	Header
	Graph *Graph
}

// Function is a callable graph. Public functions are always compiled;
// private ones only when a node calls them.
type Function struct {
	Header
	Public bool
	Graph  *Graph
}

// StateMachine owns States. Begin, if set, picks the initial state.
type StateMachine struct {
	Header
	Begin *Graph
}

// State is a child of a StateMachine or of another State.
type State struct {
	Header
}

// Variable declares a class variable.
type Variable struct {
	Header
	TypeGUID ir.GUID
	Default  ir.Value
	Public   bool
}

// Timer is class-level when parented under the class, state-scoped when
// parented under a State.
type Timer struct {
	Header
	Params ir.TimerParams
}

// SignalReceiver runs Graph for matching signals. A nil Sender matches any.
type SignalReceiver struct {
	Header
	Signal ir.GUID
	Sender ir.GUID
	Graph  *Graph
}

// Transition leaves its parent State on Signal. Graph, when present,
// chooses the target; otherwise Target (a state GUID) is used.
type Transition struct {
	Header
	Signal ir.GUID
	Sender ir.GUID
	Target ir.GUID
	Graph  *Graph
}

// ActionInstance declares an action. Under a State it runs while the state
// is active; under the class it only starts when a node starts it.
type ActionInstance struct {
	Header
	TypeGUID   ir.GUID
	Properties ir.Properties
}

func (*Class) Kind() Kind             { return KindClass }
func (*Base) Kind() Kind              { return KindBase }
func (*ComponentInstance) Kind() Kind { return KindComponentInstance }
func (*Constructor) Kind() Kind       { return KindConstructor }
func (*Function) Kind() Kind          { return KindFunction }
func (*StateMachine) Kind() Kind      { return KindStateMachine }
func (*State) Kind() Kind             { return KindState }
func (*Variable) Kind() Kind          { return KindVariable }
func (*Timer) Kind() Kind             { return KindTimer }
func (*SignalReceiver) Kind() Kind    { return KindSignalReceiver }
func (*Transition) Kind() Kind        { return KindTransition }
func (*ActionInstance) Kind() Kind    { return KindActionInstance }

func (e *Class) Accept(v Visitor) error             { return v.VisitClass(e) }
func (e *Base) Accept(v Visitor) error              { return v.VisitBase(e) }
func (e *ComponentInstance) Accept(v Visitor) error { return v.VisitComponentInstance(e) }
func (e *Constructor) Accept(v Visitor) error       { return v.VisitConstructor(e) }
func (e *Function) Accept(v Visitor) error          { return v.VisitFunction(e) }
func (e *StateMachine) Accept(v Visitor) error      { return v.VisitStateMachine(e) }
func (e *State) Accept(v Visitor) error             { return v.VisitState(e) }
func (e *Variable) Accept(v Visitor) error          { return v.VisitVariable(e) }
func (e *Timer) Accept(v Visitor) error             { return v.VisitTimer(e) }
func (e *SignalReceiver) Accept(v Visitor) error    { return v.VisitSignalReceiver(e) }
func (e *Transition) Accept(v Visitor) error        { return v.VisitTransition(e) }
func (e *ActionInstance) Accept(v Visitor) error    { return v.VisitActionInstance(e) }

// EnclosingState returns the nearest State ancestor of e, or nil.
func EnclosingState(e Element) *State {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if s, ok := p.(*State); ok {
			return s
		}
	}
	return nil
}

// EnclosingMachine returns the StateMachine that owns e, or nil.
func EnclosingMachine(e Element) *StateMachine {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if m, ok := p.(*StateMachine); ok {
			return m
		}
	}
	return nil
}

// Walk calls fn for e and every descendant in depth-first pre-order.
// Returning false from fn skips the element's children.
func Walk(e Element, fn func(Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}
