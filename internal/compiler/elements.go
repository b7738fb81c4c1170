package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

type pendingGraph struct {
	src *script.Graph
	idx int
}

type pendingTransition struct {
	state, index int
	name         string
	target       ir.GUID
	hasGraph     bool
}

type declaredFunction struct {
	index int
	graph *script.Graph
}

// classCompiler holds the state of one CompileClass call. It visits
// elements and doubles as the CompileContext nodes resolve names through.
type classCompiler struct {
	c  *Compiler
	rc *ir.RuntimeClass

	machines    map[ir.GUID]int
	states      map[ir.GUID]int
	stateNames  map[string]int
	variables   map[string]int
	timers      map[string]int
	timerGUIDs  map[string]ir.GUID
	actions     map[string]int
	functions   map[string]declaredFunction
	scheduled   map[ir.GUID]int
	pending     []pendingGraph
	transitions []pendingTransition
	warnings    []*CompileError
}

func newClassCompiler(c *Compiler, rc *ir.RuntimeClass) *classCompiler {
	return &classCompiler{
		c:          c,
		rc:         rc,
		machines:   make(map[ir.GUID]int),
		states:     make(map[ir.GUID]int),
		stateNames: make(map[string]int),
		variables:  make(map[string]int),
		timers:     make(map[string]int),
		timerGUIDs: make(map[string]ir.GUID),
		actions:    make(map[string]int),
		functions:  make(map[string]declaredFunction),
		scheduled:  make(map[ir.GUID]int),
	}
}

func (cc *classCompiler) compileElements(cls *script.Class) error {
	return cc.visitChildren(cls)
}

func (cc *classCompiler) visitChildren(e script.Element) error {
	for _, child := range e.Children() {
		if err := child.Accept(cc); err != nil {
			return err
		}
	}
	return nil
}

func (cc *classCompiler) warn(e script.Element, code, msg string) {
	ce := &CompileError{Class: cc.rc.Name(), Element: e.Name(), Code: code, Message: msg}
	cc.warnings = append(cc.warnings, ce)
	cc.c.logger.Warn("element skipped", "class", cc.rc.Name(), "element", e.Name(), "kind", e.Kind().String(), "error", ce)
}

func (cc *classCompiler) fail(e script.Element, code, msg string) error {
	return &CompileError{Class: cc.rc.Name(), Element: e.Name(), Code: code, Message: msg}
}

// schedule reserves a graph slot for src and queues it for compilation.
// Scheduling the same graph twice returns the same slot.
func (cc *classCompiler) schedule(src *script.Graph) int {
	if src == nil {
		return -1
	}
	if idx, ok := cc.scheduled[src.GUID]; ok {
		return idx
	}
	idx := cc.rc.AddGraph(ir.NewRuntimeGraph(src.GUID, src.Name))
	cc.scheduled[src.GUID] = idx
	cc.pending = append(cc.pending, pendingGraph{src: src, idx: idx})
	return idx
}

// drain compiles pending graphs until none are left. Compiling a graph may
// schedule more.
func (cc *classCompiler) drain() error {
	for len(cc.pending) > 0 {
		next := cc.pending[0]
		cc.pending = cc.pending[1:]
		if err := CompileGraph(next.src, cc.rc.Graph(next.idx), cc); err != nil {
			var ce *CompileError
			if errors.As(err, &ce) && ce.Class == "" {
				ce.Class = cc.rc.Name()
			}
			return err
		}
	}
	return nil
}

func (cc *classCompiler) resolveTransitions() {
	for _, pt := range cc.transitions {
		if pt.target == ir.NilGUID {
			continue
		}
		target, ok := cc.states[pt.target]
		if !ok {
			cc.warnings = append(cc.warnings, &CompileError{
				Class: cc.rc.Name(), Element: pt.name, Code: ErrUnknownTransition,
				Message: fmt.Sprintf("transition target state %s not found", pt.target),
			})
			cc.c.logger.Warn("transition target not found", "class", cc.rc.Name(), "transition", pt.name, "target", pt.target)
			continue
		}
		cc.rc.SetTransitionTarget(pt.state, pt.index, target)
	}
}

// enclosingStateIndex returns the index of e's parent state, or false when
// e is not parented directly under a registered state.
func (cc *classCompiler) enclosingStateIndex(e script.Element) (int, bool) {
	st, ok := e.Parent().(*script.State)
	if !ok {
		return -1, false
	}
	idx, ok := cc.states[st.GUID()]
	return idx, ok
}

func classScoped(e script.Element) bool {
	switch e.Parent().(type) {
	case *script.Class, *script.Base:
		return true
	}
	return false
}

func (cc *classCompiler) VisitClass(e *script.Class) error { return cc.visitChildren(e) }
func (cc *classCompiler) VisitBase(e *script.Base) error   { return cc.visitChildren(e) }

// Component instances were handled by the component pass.
func (cc *classCompiler) VisitComponentInstance(*script.ComponentInstance) error { return nil }

func (cc *classCompiler) VisitConstructor(e *script.Constructor) error {
	if e.Graph == nil {
		return nil
	}
	cc.rc.AddConstructor(ir.Constructor{GUID: e.GUID(), Graph: cc.schedule(e.Graph)})
	return nil
}

func (cc *classCompiler) VisitFunction(e *script.Function) error {
	idx := cc.rc.AddFunction(ir.Function{GUID: e.GUID(), Name: e.Name(), Graph: -1})
	cc.functions[e.Name()] = declaredFunction{index: idx, graph: e.Graph}
	if e.Public {
		cc.rc.SetFunctionGraph(idx, cc.schedule(e.Graph))
	}
	return nil
}

func (cc *classCompiler) VisitStateMachine(e *script.StateMachine) error {
	idx := cc.rc.AddStateMachine(ir.StateMachine{GUID: e.GUID(), Name: e.Name(), BeginGraph: cc.schedule(e.Begin)})
	cc.machines[e.GUID()] = idx
	return cc.visitChildren(e)
}

func (cc *classCompiler) VisitState(e *script.State) error {
	m := script.EnclosingMachine(e)
	if m == nil {
		cc.warn(e, ErrMissingState, "state is not inside a state machine")
		return cc.visitChildren(e)
	}
	parent := -1
	if ps := script.EnclosingState(e); ps != nil {
		if idx, ok := cc.states[ps.GUID()]; ok {
			parent = idx
		}
	}
	idx := cc.rc.AddState(ir.State{GUID: e.GUID(), Name: e.Name(), Machine: cc.machines[m.GUID()], Parent: parent})
	cc.states[e.GUID()] = idx
	cc.stateNames[e.Name()] = idx
	return cc.visitChildren(e)
}

func (cc *classCompiler) VisitVariable(e *script.Variable) error {
	dt := cc.c.host.Env.GetDataType(e.TypeGUID)
	if dt == nil {
		return cc.fail(e, ErrUnknownDataType, fmt.Sprintf("unknown data type %s", e.TypeGUID))
	}
	v := dt.Default
	if e.Default != nil {
		coerced, err := ir.Coerce(e.Default, dt.Kind)
		if err != nil {
			return cc.fail(e, ErrInvalidDefault, err.Error())
		}
		v = coerced
	}
	off := cc.rc.Scratchpad().Add(v)
	cc.rc.AddVariable(ir.Variable{GUID: e.GUID(), Name: e.Name(), Public: e.Public, TypeGUID: e.TypeGUID, Offset: off})
	cc.variables[e.Name()] = off
	return nil
}

func (cc *classCompiler) VisitTimer(e *script.Timer) error {
	t := ir.Timer{GUID: e.GUID(), Name: e.Name(), Params: e.Params}
	if classScoped(e) {
		cc.timers[e.Name()] = cc.rc.AddTimer(t)
		cc.timerGUIDs[e.Name()] = e.GUID()
		return nil
	}
	state, ok := cc.enclosingStateIndex(e)
	if !ok {
		cc.warn(e, ErrMissingState, "timer's enclosing state was not registered")
		return nil
	}
	cc.rc.AddStateTimer(state, t)
	cc.timerGUIDs[e.Name()] = e.GUID()
	return nil
}

func (cc *classCompiler) VisitSignalReceiver(e *script.SignalReceiver) error {
	r := ir.SignalReceiver{GUID: e.GUID(), SignalGUID: e.Signal, SenderGUID: e.Sender}
	if classScoped(e) {
		r.Graph = cc.schedule(e.Graph)
		cc.rc.AddSignalReceiver(r)
		return nil
	}
	state, ok := cc.enclosingStateIndex(e)
	if !ok {
		cc.warn(e, ErrMissingState, "receiver's enclosing state was not registered")
		return nil
	}
	r.Graph = cc.schedule(e.Graph)
	cc.rc.AddStateSignalReceiver(state, r)
	return nil
}

func (cc *classCompiler) VisitTransition(e *script.Transition) error {
	state, ok := cc.enclosingStateIndex(e)
	if !ok {
		cc.warn(e, ErrMissingState, "transition is not inside a registered state")
		return nil
	}
	idx := cc.rc.AddStateTransition(state, ir.Transition{
		GUID:       e.GUID(),
		Name:       e.Name(),
		SignalGUID: e.Signal,
		SenderGUID: e.Sender,
		Graph:      cc.schedule(e.Graph),
		Target:     ir.NoState,
	})
	cc.transitions = append(cc.transitions, pendingTransition{
		state: state, index: idx, name: e.Name(), target: e.Target, hasGraph: e.Graph != nil,
	})
	if e.Graph == nil && e.Target == ir.NilGUID {
		cc.warn(e, ErrUnknownTransition, "transition has neither a target nor a graph")
	}
	return nil
}

func (cc *classCompiler) VisitActionInstance(e *script.ActionInstance) error {
	idx := cc.rc.AddAction(ir.Action{GUID: e.GUID(), Name: e.Name(), TypeGUID: e.TypeGUID, Properties: e.Properties.Clone()})
	cc.actions[e.Name()] = idx
	if st, ok := e.Parent().(*script.State); ok {
		state, found := cc.states[st.GUID()]
		if !found {
			cc.warn(e, ErrMissingState, "action's enclosing state was not registered")
			return nil
		}
		cc.rc.AddStateAction(state, idx)
	}
	return nil
}

// CompileContext

func (cc *classCompiler) Env() *env.Registry   { return cc.c.host.Env }
func (cc *classCompiler) Logger() *slog.Logger { return cc.c.logger }

func (cc *classCompiler) VariableOffset(name string) int { return lookup(cc.variables, name) }
func (cc *classCompiler) StateIndex(name string) int     { return lookup(cc.stateNames, name) }
func (cc *classCompiler) TimerIndex(name string) int     { return lookup(cc.timers, name) }
func (cc *classCompiler) ActionIndex(name string) int    { return lookup(cc.actions, name) }

func (cc *classCompiler) FunctionIndex(name string) int {
	fn, ok := cc.functions[name]
	if !ok {
		return -1
	}
	if cc.rc.Functions()[fn.index].Graph < 0 {
		cc.rc.SetFunctionGraph(fn.index, cc.schedule(fn.graph))
	}
	return fn.index
}

func (cc *classCompiler) SignalGUID(name string) (ir.GUID, bool) {
	if d := cc.c.host.Env.SignalByName(name); d != nil {
		return d.GUID, true
	}
	id, ok := cc.timerGUIDs[name]
	return id, ok
}

func lookup(m map[string]int, name string) int {
	if idx, ok := m[name]; ok {
		return idx
	}
	return -1
}
