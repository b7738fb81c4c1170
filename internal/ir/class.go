package ir

import (
	"slices"
	"time"
)

// Transform places a component instance relative to its parent.
type Transform struct {
	Position [3]float64
	Rotation [3]float64
	Scale    [3]float64
}

// IdentityTransform has zero translation and rotation and unit scale.
var IdentityTransform = Transform{Scale: [3]float64{1, 1, 1}}

// ComponentInstance is one compiled component slot.
type ComponentInstance struct {
	GUID       GUID
	Name       string
	Public     bool
	TypeGUID   GUID
	Transform  Transform
	Properties Properties
	// Parent is the index of the parent instance, -1 for root instances.
	Parent int
	// Dependencies lists the indices of instances this one must be
	// constructed after (hard and soft interactions plus the parent).
	Dependencies []int
}

// Variable is a class variable bound to a scratchpad slot.
type Variable struct {
	GUID     GUID
	Name     string
	Public   bool
	TypeGUID GUID
	Offset   int
}

// TimerUnit selects how a timer duration is measured.
type TimerUnit int

const (
	TimerSeconds TimerUnit = iota
	TimerFrames
)

// TimerParams configures a timer.
type TimerParams struct {
	Unit      TimerUnit
	Duration  time.Duration
	Frames    int
	Repeat    bool
	AutoStart bool
}

// Timer is a class-level or state-scoped timer. When it expires the owning
// object receives a signal whose type is the timer's GUID.
type Timer struct {
	GUID   GUID
	Name   string
	Params TimerParams
}

// SignalReceiver runs Graph when a signal matching (SignalGUID, SenderGUID)
// is dispatched. A nil SenderGUID matches every sender.
type SignalReceiver struct {
	GUID       GUID
	SignalGUID GUID
	SenderGUID GUID
	Graph      int
}

// Transition leaves a state when its signal arrives. Graph, if present,
// decides the target state; otherwise Target is used.
type Transition struct {
	GUID       GUID
	Name       string
	SignalGUID GUID
	SenderGUID GUID
	Graph      int
	Target     int
}

// State belongs to one state machine and owns its own timers, receivers,
// transitions and auto-run actions.
type State struct {
	GUID            GUID
	Name            string
	Machine         int
	Parent          int
	Timers          []Timer
	SignalReceivers []SignalReceiver
	Transitions     []Transition
	Actions         []int
}

// StateMachine runs BeginGraph on start to pick its initial state.
// BeginGraph is -1 when the machine starts stateless.
type StateMachine struct {
	GUID       GUID
	Name       string
	BeginGraph int
}

// Function is a graph callable through ExecuteFunction.
type Function struct {
	GUID  GUID
	Name  string
	Graph int
}

// Constructor is a graph run whenever an object enters a simulation mode.
type Constructor struct {
	GUID  GUID
	Graph int
}

// Action describes an action instance created from the native action registry.
type Action struct {
	GUID       GUID
	Name       string
	TypeGUID   GUID
	Properties Properties
}

// RuntimeClass is the immutable compiled program for one script class.
//
// It is built by the compiler through the Add* methods, sealed with
// Finalize, and then shared by every object created from it. A recompile
// produces a new RuntimeClass with a later timestamp; objects keep the one
// they were initialized with until they re-enter a simulation mode.
type RuntimeClass struct {
	timestamp         int64
	guid              GUID
	name              string
	envClass          GUID
	defaultProperties Properties
	scratch           Scratchpad

	graphs          []*RuntimeGraph
	functions       []Function
	constructors    []Constructor
	stateMachines   []StateMachine
	states          []State
	variables       []Variable
	timers          []Timer
	components      []ComponentInstance
	signalReceivers []SignalReceiver
	actions         []Action

	finalized bool
}

// NewRuntimeClass creates an empty class. timestamp orders compiles of the
// same GUID: a larger timestamp is a newer class.
func NewRuntimeClass(timestamp int64, guid GUID, name string, envClass GUID, defaults Properties) *RuntimeClass {
	return &RuntimeClass{
		timestamp:         timestamp,
		guid:              guid,
		name:              name,
		envClass:          envClass,
		defaultProperties: defaults.Clone(),
	}
}

func (c *RuntimeClass) Timestamp() int64                        { return c.timestamp }
func (c *RuntimeClass) GUID() GUID                              { return c.guid }
func (c *RuntimeClass) Name() string                            { return c.name }
func (c *RuntimeClass) EnvClass() GUID                          { return c.envClass }
func (c *RuntimeClass) DefaultProperties() Properties           { return c.defaultProperties }
func (c *RuntimeClass) Scratchpad() *Scratchpad                 { return &c.scratch }
func (c *RuntimeClass) Finalized() bool                         { return c.finalized }
func (c *RuntimeClass) Graphs() []*RuntimeGraph                 { return c.graphs }
func (c *RuntimeClass) Functions() []Function                   { return c.functions }
func (c *RuntimeClass) Constructors() []Constructor             { return c.constructors }
func (c *RuntimeClass) StateMachines() []StateMachine           { return c.stateMachines }
func (c *RuntimeClass) States() []State                         { return c.states }
func (c *RuntimeClass) Variables() []Variable                   { return c.variables }
func (c *RuntimeClass) Timers() []Timer                         { return c.timers }
func (c *RuntimeClass) ComponentInstances() []ComponentInstance { return c.components }
func (c *RuntimeClass) SignalReceivers() []SignalReceiver       { return c.signalReceivers }
func (c *RuntimeClass) Actions() []Action                       { return c.actions }

// Graph returns graph i or nil.
func (c *RuntimeClass) Graph(i int) *RuntimeGraph {
	if i < 0 || i >= len(c.graphs) {
		return nil
	}
	return c.graphs[i]
}

// State returns state i or nil.
func (c *RuntimeClass) State(i int) *State {
	if i < 0 || i >= len(c.states) {
		return nil
	}
	return &c.states[i]
}

// AddGraph appends a graph and returns its index.
func (c *RuntimeClass) AddGraph(g *RuntimeGraph) int {
	c.mustBeMutable()
	c.graphs = append(c.graphs, g)
	return len(c.graphs) - 1
}

// FindGraph returns the index of the graph with the given GUID, or -1.
func (c *RuntimeClass) FindGraph(guid GUID) int {
	return slices.IndexFunc(c.graphs, func(g *RuntimeGraph) bool { return g.GUID() == guid })
}

func (c *RuntimeClass) AddFunction(f Function) int {
	c.mustBeMutable()
	c.functions = append(c.functions, f)
	return len(c.functions) - 1
}

func (c *RuntimeClass) FindFunction(guid GUID) int {
	return slices.IndexFunc(c.functions, func(f Function) bool { return f.GUID == guid })
}

// SetFunctionGraph binds the graph of a function compiled on demand.
func (c *RuntimeClass) SetFunctionGraph(fn, graph int) {
	c.mustBeMutable()
	c.functions[fn].Graph = graph
}

func (c *RuntimeClass) FindFunctionByName(name string) int {
	return slices.IndexFunc(c.functions, func(f Function) bool { return f.Name == name })
}

func (c *RuntimeClass) AddConstructor(ctor Constructor) int {
	c.mustBeMutable()
	c.constructors = append(c.constructors, ctor)
	return len(c.constructors) - 1
}

func (c *RuntimeClass) AddStateMachine(m StateMachine) int {
	c.mustBeMutable()
	c.stateMachines = append(c.stateMachines, m)
	return len(c.stateMachines) - 1
}

func (c *RuntimeClass) FindStateMachine(guid GUID) int {
	return slices.IndexFunc(c.stateMachines, func(m StateMachine) bool { return m.GUID == guid })
}

func (c *RuntimeClass) AddState(s State) int {
	c.mustBeMutable()
	c.states = append(c.states, s)
	return len(c.states) - 1
}

func (c *RuntimeClass) FindState(guid GUID) int {
	return slices.IndexFunc(c.states, func(s State) bool { return s.GUID == guid })
}

// AddStateTimer appends a timer to state and returns its index within the state.
func (c *RuntimeClass) AddStateTimer(state int, t Timer) int {
	c.mustBeMutable()
	s := &c.states[state]
	s.Timers = append(s.Timers, t)
	return len(s.Timers) - 1
}

func (c *RuntimeClass) AddStateSignalReceiver(state int, r SignalReceiver) int {
	c.mustBeMutable()
	s := &c.states[state]
	s.SignalReceivers = append(s.SignalReceivers, r)
	return len(s.SignalReceivers) - 1
}

func (c *RuntimeClass) AddStateTransition(state int, t Transition) int {
	c.mustBeMutable()
	s := &c.states[state]
	s.Transitions = append(s.Transitions, t)
	return len(s.Transitions) - 1
}

// SetTransitionTarget resolves the static target of a transition once all
// states are known.
func (c *RuntimeClass) SetTransitionTarget(state, transition, target int) {
	c.mustBeMutable()
	c.states[state].Transitions[transition].Target = target
}

func (c *RuntimeClass) AddStateAction(state, action int) {
	c.mustBeMutable()
	s := &c.states[state]
	s.Actions = append(s.Actions, action)
}

func (c *RuntimeClass) AddVariable(v Variable) int {
	c.mustBeMutable()
	c.variables = append(c.variables, v)
	return len(c.variables) - 1
}

func (c *RuntimeClass) FindVariable(guid GUID) int {
	return slices.IndexFunc(c.variables, func(v Variable) bool { return v.GUID == guid })
}

// FindVariableByName returns the index of the first variable called name, or -1.
func (c *RuntimeClass) FindVariableByName(name string) int {
	return slices.IndexFunc(c.variables, func(v Variable) bool { return v.Name == name })
}

func (c *RuntimeClass) AddTimer(t Timer) int {
	c.mustBeMutable()
	c.timers = append(c.timers, t)
	return len(c.timers) - 1
}

func (c *RuntimeClass) FindTimer(guid GUID) int {
	return slices.IndexFunc(c.timers, func(t Timer) bool { return t.GUID == guid })
}

func (c *RuntimeClass) AddComponentInstance(ci ComponentInstance) int {
	c.mustBeMutable()
	c.components = append(c.components, ci)
	return len(c.components) - 1
}

func (c *RuntimeClass) FindComponentInstance(guid GUID) int {
	return slices.IndexFunc(c.components, func(ci ComponentInstance) bool { return ci.GUID == guid })
}

// SetComponentInstances replaces the instance table, used once the
// compiler has dependency-sorted it.
func (c *RuntimeClass) SetComponentInstances(instances []ComponentInstance) {
	c.mustBeMutable()
	c.components = instances
}

func (c *RuntimeClass) AddSignalReceiver(r SignalReceiver) int {
	c.mustBeMutable()
	c.signalReceivers = append(c.signalReceivers, r)
	return len(c.signalReceivers) - 1
}

func (c *RuntimeClass) AddAction(a Action) int {
	c.mustBeMutable()
	c.actions = append(c.actions, a)
	return len(c.actions) - 1
}

func (c *RuntimeClass) FindAction(guid GUID) int {
	return slices.IndexFunc(c.actions, func(a Action) bool { return a.GUID == guid })
}

// Finalize trims every collection to its exact size and seals the class.
// Idempotent.
func (c *RuntimeClass) Finalize() {
	if c.finalized {
		return
	}
	c.scratch.Trim()
	for _, g := range c.graphs {
		g.Finalize()
	}
	c.graphs = slices.Clip(c.graphs)
	c.functions = slices.Clip(c.functions)
	c.constructors = slices.Clip(c.constructors)
	c.stateMachines = slices.Clip(c.stateMachines)
	for i := range c.states {
		s := &c.states[i]
		s.Timers = slices.Clip(s.Timers)
		s.SignalReceivers = slices.Clip(s.SignalReceivers)
		s.Transitions = slices.Clip(s.Transitions)
		s.Actions = slices.Clip(s.Actions)
	}
	c.states = slices.Clip(c.states)
	c.variables = slices.Clip(c.variables)
	c.timers = slices.Clip(c.timers)
	c.components = slices.Clip(c.components)
	c.signalReceivers = slices.Clip(c.signalReceivers)
	c.actions = slices.Clip(c.actions)
	c.finalized = true
}

func (c *RuntimeClass) mustBeMutable() {
	if c.finalized {
		panic("ir: RuntimeClass modified after Finalize")
	}
}
