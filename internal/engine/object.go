package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/graph"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/schedule"
)

// SimulationMode is the lifecycle state of an object.
type SimulationMode int

const (
	ModeIdle SimulationMode = iota
	ModePreview
	ModeGame
)

func (m SimulationMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePreview:
		return "preview"
	case ModeGame:
		return "game"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseSimulationMode parses "idle", "preview" or "game".
func ParseSimulationMode(s string) (SimulationMode, error) {
	switch s {
	case "idle":
		return ModeIdle, nil
	case "preview":
		return ModePreview, nil
	case "game":
		return ModeGame, nil
	}
	return ModeIdle, fmt.Errorf("unknown simulation mode %q", s)
}

// SignalObserver is invoked for every signal an object dispatches, after
// it leaves the queue and before any receiver runs.
type SignalObserver func(id ObjectID, sig ir.Signal)

// dispatchState tracks whether an object is inside ProcessSignal.
type dispatchState uint8

const (
	dispatchIdle dispatchState = iota
	dispatchActive
)

// maxCallDepth bounds nested ExecuteFunction calls.
const maxCallDepth = 32

type actionInstance struct {
	native  env.Action
	running bool
}

type timerInstance struct {
	id     schedule.TimerID
	guid   ir.GUID
	params ir.TimerParams
}

// Object is one live instance of a RuntimeClass.
//
// An Object is owned by its pool and must only be used from the
// simulation goroutine.
type Object struct {
	id        ObjectID
	guid      ir.GUID
	classGUID ir.GUID
	host      *host.Context
	entity    Entity
	logger    *slog.Logger
	maxSteps  int
	observer  SignalObserver
	overrides ir.Properties

	class       *ir.RuntimeClass
	mode        SimulationMode
	scratch     ir.Scratchpad
	graphs      []*graph.Instance
	components  []env.Component
	actions     []actionInstance
	timers      []timerInstance
	stateTimers [][]timerInstance
	current     []int
	hasUpdate   bool
	update      schedule.Scope

	dispatch  dispatchState
	queueing  bool
	callDepth int
	queue     *signalQueue
}

type objectConfig struct {
	id        ObjectID
	guid      ir.GUID
	classGUID ir.GUID
	entity    Entity
	logger    *slog.Logger
	maxSteps  int
	observer  SignalObserver
	overrides ir.Properties
}

func newObject(h *host.Context, cfg objectConfig) *Object {
	return &Object{
		id:        cfg.id,
		guid:      cfg.guid,
		classGUID: cfg.classGUID,
		host:      h,
		entity:    cfg.entity,
		logger:    cfg.logger.With("object", cfg.id.String()),
		maxSteps:  cfg.maxSteps,
		observer:  cfg.observer,
		overrides: cfg.overrides.Clone(),
		queue:     newSignalQueue(),
	}
}

func (o *Object) ID() ObjectID                { return o.id }
func (o *Object) GUID() ir.GUID               { return o.guid }
func (o *Object) ClassGUID() ir.GUID          { return o.classGUID }
func (o *Object) Class() *ir.RuntimeClass     { return o.class }
func (o *Object) Mode() SimulationMode        { return o.mode }
func (o *Object) Entity() Entity              { return o.entity }
func (o *Object) Components() []env.Component { return o.components }

// QueueLen returns the number of deferred signals.
func (o *Object) QueueLen() int { return o.queue.Len() }

// Init binds the object to the registered class and creates its
// components, actions and timers. On failure everything created so far is
// released.
func (o *Object) Init() error {
	rc := o.host.Classes.Get(o.classGUID)
	if rc == nil {
		return newRuntimeError(ErrCodeUnknownClass, o.id, "no compiled class %s", o.classGUID)
	}
	return o.bind(rc)
}

// Destroy leaves the simulation and releases every native resource.
func (o *Object) Destroy() {
	o.leave()
	o.unbind()
}

func (o *Object) bind(rc *ir.RuntimeClass) error {
	o.class = rc
	o.scratch = rc.Scratchpad().Clone()
	o.graphs = make([]*graph.Instance, len(rc.Graphs()))
	for i, g := range rc.Graphs() {
		o.graphs[i] = graph.NewInstance(g, o.maxSteps, o.logger)
	}
	o.current = make([]int, len(rc.StateMachines()))
	for i := range o.current {
		o.current[i] = ir.NoState
	}

	if err := o.createComponents(); err != nil {
		o.unbind()
		return err
	}
	if err := o.createActions(); err != nil {
		o.unbind()
		return err
	}
	o.createTimers()
	o.hasUpdate = hasReceiverFor(rc, env.SignalUpdate)
	o.logger.Debug("object bound",
		"class", rc.Name(),
		"timestamp", rc.Timestamp(),
		"components", len(o.components),
		"timers", len(o.timers))
	return nil
}

func (o *Object) unbind() {
	for _, t := range o.timers {
		o.host.Timers.StopTimer(t.id)
		o.host.Timers.DestroyTimer(t.id)
	}
	for _, ts := range o.stateTimers {
		for _, t := range ts {
			o.host.Timers.StopTimer(t.id)
			o.host.Timers.DestroyTimer(t.id)
		}
	}
	o.timers, o.stateTimers = nil, nil

	for i := range o.actions {
		o.StopAction(i)
	}
	o.actions = nil

	for i := len(o.components) - 1; i >= 0; i-- {
		o.components[i].Shutdown()
		o.entity.Detach(o.components[i])
	}
	o.components = nil
	o.graphs = nil
	o.queue.Clear()
}

func (o *Object) createComponents() error {
	instances := o.class.ComponentInstances()
	o.components = make([]env.Component, 0, len(instances))
	for i := range instances {
		ci := &instances[i]
		desc := o.host.Env.GetComponent(ci.TypeGUID)
		if desc == nil {
			return newRuntimeError(ErrCodeMissingComponent, o.id, "component %s: unknown type %s", ci.Name, ci.TypeGUID)
		}
		var parent env.Component
		if ci.Parent >= 0 {
			if ci.Parent >= i {
				return newRuntimeError(ErrCodeComponentFailed, o.id, "component %s: parent %d is not attached yet", ci.Name, ci.Parent)
			}
			parent = o.components[ci.Parent]
		}
		c := desc.New()
		if err := o.entity.Attach(ci, parent, c); err != nil {
			return &RuntimeError{Code: ErrCodeComponentFailed, ObjectID: o.id,
				Message: fmt.Sprintf("component %s: attach: %v", ci.Name, err)}
		}
		o.components = append(o.components, c)
		if err := c.ApplyProperties(desc.DefaultProperties.Overlay(ci.Properties)); err != nil {
			return &RuntimeError{Code: ErrCodeComponentFailed, ObjectID: o.id,
				Message: fmt.Sprintf("component %s: properties: %v", ci.Name, err)}
		}
	}
	// Init runs once every sibling is attached.
	for i, c := range o.components {
		if err := c.Init(); err != nil {
			return &RuntimeError{Code: ErrCodeComponentFailed, ObjectID: o.id,
				Message: fmt.Sprintf("component %s: init: %v", instances[i].Name, err)}
		}
	}
	return nil
}

type propertyApplier interface {
	ApplyProperties(ir.Properties) error
}

func (o *Object) createActions() error {
	descs := o.class.Actions()
	o.actions = make([]actionInstance, 0, len(descs))
	for _, a := range descs {
		desc := o.host.Env.GetAction(a.TypeGUID)
		if desc == nil {
			return newRuntimeError(ErrCodeMissingAction, o.id, "action %s: unknown type %s", a.Name, a.TypeGUID)
		}
		native := desc.New()
		if pa, ok := native.(propertyApplier); ok && len(a.Properties) > 0 {
			if err := pa.ApplyProperties(a.Properties); err != nil {
				o.logger.Warn("action properties rejected", "action", a.Name, "error", err)
			}
		}
		o.actions = append(o.actions, actionInstance{native: native})
	}
	return nil
}

func (o *Object) createTimers() {
	o.timers = make([]timerInstance, len(o.class.Timers()))
	for i, t := range o.class.Timers() {
		o.timers[i] = o.newTimer(t)
	}
	o.stateTimers = make([][]timerInstance, len(o.class.States()))
	for s, st := range o.class.States() {
		for _, t := range st.Timers {
			o.stateTimers[s] = append(o.stateTimers[s], o.newTimer(t))
		}
	}
}

func (o *Object) newTimer(t ir.Timer) timerInstance {
	typ := t.GUID
	id := o.host.Timers.CreateTimer(t.Params, func(schedule.TimerID) {
		o.ProcessSignal(ir.NewSignal(typ))
	})
	return timerInstance{id: id, guid: t.GUID, params: t.Params}
}

func hasReceiverFor(rc *ir.RuntimeClass, signal ir.GUID) bool {
	for _, r := range rc.SignalReceivers() {
		if r.SignalGUID == signal {
			return true
		}
	}
	for _, st := range rc.States() {
		for _, r := range st.SignalReceivers {
			if r.SignalGUID == signal {
				return true
			}
		}
	}
	return false
}

// SetOverrides replaces the public variable overrides applied whenever the
// object enters a simulation mode.
func (o *Object) SetOverrides(props ir.Properties) {
	o.overrides = props.Clone()
}

// SetSimulationMode leaves the current mode and enters mode. Entering the
// current mode again restarts it, which is how hot reload reaches live
// objects.
func (o *Object) SetSimulationMode(mode SimulationMode) error {
	if mode != ModeIdle && mode != ModePreview && mode != ModeGame {
		return newRuntimeError(ErrCodeInvalidMode, o.id, "unknown simulation mode %d", int(mode))
	}
	o.leave()
	if mode == ModeIdle {
		return nil
	}
	if err := o.refreshClass(); err != nil {
		return err
	}

	o.mode = mode
	o.reset()
	o.applyOverrides()
	o.deferSignals(func() {
		for _, c := range o.class.Constructors() {
			o.runGraph(c.Graph, nil)
		}
	})
	if mode == ModeGame {
		o.startGame()
	}
	o.logger.Debug("simulation mode entered", "mode", mode.String(), "class", o.class.Name())
	return nil
}

// refreshClass hot swaps to a newer compile of the class.
func (o *Object) refreshClass() error {
	latest := o.host.Classes.Get(o.classGUID)
	if latest == nil || latest == o.class || latest.Timestamp() <= o.class.Timestamp() {
		return nil
	}
	old := o.class
	o.logger.Info("hot swapping class",
		"class", latest.Name(),
		"from", old.Timestamp(),
		"to", latest.Timestamp())
	o.unbind()
	if err := o.bind(latest); err != nil {
		o.logger.Error("hot swap failed, keeping previous class", "class", latest.Name(), "error", err)
		if rerr := o.bind(old); rerr != nil {
			return fmt.Errorf("rebind %s: %w", old.Name(), rerr)
		}
		return err
	}
	return nil
}

func (o *Object) reset() {
	o.scratch.Reset(o.class.Scratchpad())
	for _, in := range o.graphs {
		in.Reset()
	}
}

func (o *Object) applyOverrides() {
	for _, name := range o.overrides.SortedKeys() {
		idx := o.class.FindVariableByName(name)
		if idx < 0 || !o.class.Variables()[idx].Public {
			o.logger.Warn("override ignored: no public variable", "variable", name)
			continue
		}
		v := o.class.Variables()[idx]
		val := o.overrides[name]
		if dt := o.host.Env.GetDataType(v.TypeGUID); dt != nil {
			coerced, err := ir.Coerce(val, dt.Kind)
			if err != nil {
				o.logger.Warn("override ignored", "variable", name, "error", err)
				continue
			}
			val = coerced
		}
		o.scratch.Set(v.Offset, val)
	}
}

func (o *Object) startGame() {
	o.ProcessSignal(ir.NewSignal(env.SignalStart))
	o.deferSignals(func() {
		for m, sm := range o.class.StateMachines() {
			if sm.BeginGraph < 0 {
				continue
			}
			res, err := o.runGraph(sm.BeginGraph, nil)
			if err != nil {
				o.logger.Warn("state machine begin graph aborted, machine not started", "machine", sm.Name, "error", err)
				continue
			}
			if res.TargetState == ir.NoState {
				continue
			}
			o.ChangeState(m, res.TargetState)
		}
		for _, t := range o.timers {
			if t.params.AutoStart {
				o.host.Timers.StartTimer(t.id)
			}
		}
	})
	if o.hasUpdate {
		err := o.host.Updates.Connect(schedule.UpdateParams{
			Scope:     &o.update,
			Frequency: schedule.EveryFrame,
			Priority:  schedule.PriorityDefault,
			Callback: func(ctx schedule.UpdateContext) {
				o.ProcessSignal(ir.NewSignal(env.SignalUpdate, ir.Float(ctx.FrameTime.Seconds())))
			},
		})
		if err != nil {
			o.logger.Warn("update connect failed", "error", err)
		}
	}
}

// leave tears the current mode down and returns to Idle.
func (o *Object) leave() {
	if o.mode == ModeIdle {
		return
	}
	if o.mode == ModeGame {
		// Every state exits before Stop is dispatched.
		o.deferSignals(func() {
			for m := range o.current {
				o.ChangeState(m, ir.NoState)
			}
		})
		o.ProcessSignal(ir.NewSignal(env.SignalStop))
		if o.update.Connected() {
			o.host.Updates.Disconnect(&o.update)
		}
	}
	for _, t := range o.timers {
		o.host.Timers.StopTimer(t.id)
	}
	for i := range o.actions {
		o.StopAction(i)
	}
	o.queue.Clear()
	o.mode = ModeIdle
}

// deferSignals runs fn with signal queuing forced on and drains the queue
// afterwards unless an outer caller was already queuing.
func (o *Object) deferSignals(fn func()) {
	prev := o.queueing
	o.queueing = true
	fn()
	o.queueing = prev
	if !prev {
		o.drain()
	}
}

// ProcessSignal dispatches sig to the global receivers and to the current
// state of every state machine. A signal arriving while a dispatch is in
// progress, or while queuing is forced, is queued and dispatched once the
// current work completes.
func (o *Object) ProcessSignal(sig ir.Signal) {
	if o.mode == ModeIdle {
		o.logger.Debug("signal ignored in idle mode", "signal", sig.Type)
		return
	}
	if o.dispatch == dispatchActive || o.queueing {
		o.queue.Enqueue(sig)
		return
	}
	o.dispatch = dispatchActive
	o.dispatchSignal(sig)
	o.dispatch = dispatchIdle
	o.drain()
}

func (o *Object) drain() {
	for o.dispatch == dispatchIdle && !o.queueing {
		next, ok := o.queue.TryDequeue()
		if !ok {
			return
		}
		o.ProcessSignal(next)
	}
}

func (o *Object) dispatchSignal(sig ir.Signal) {
	if o.observer != nil {
		o.observer(o.id, sig)
	}
	for _, r := range o.class.SignalReceivers() {
		if sig.Matches(r.SignalGUID, r.SenderGUID) {
			o.runGraph(r.Graph, sig.Params)
		}
	}
	for m := range o.current {
		st := o.class.State(o.current[m])
		if st == nil {
			continue
		}
		for _, r := range st.SignalReceivers {
			if sig.Matches(r.SignalGUID, r.SenderGUID) {
				o.runGraph(r.Graph, sig.Params)
			}
		}
		for _, t := range st.Transitions {
			if !sig.Matches(t.SignalGUID, t.SenderGUID) {
				continue
			}
			target := t.Target
			if t.Graph >= 0 {
				res, err := o.runGraph(t.Graph, sig.Params)
				if err != nil {
					o.logger.Warn("transition graph aborted, transition skipped", "machine", m, "state", st.Name, "error", err)
					continue
				}
				target = res.TargetState
			}
			if target == ir.NoState {
				continue
			}
			if o.ChangeState(m, target) {
				break
			}
		}
	}
}

// ChangeState leaves the current state of machine and enters state, which
// may be ir.NoState. Returns false for an invalid machine or a state that
// belongs to another machine.
func (o *Object) ChangeState(machine, state int) bool {
	if machine < 0 || machine >= len(o.current) {
		return false
	}
	if state != ir.NoState {
		st := o.class.State(state)
		if st == nil || st.Machine != machine {
			o.logger.Warn("invalid state change", "machine", machine, "state", state)
			return false
		}
	}

	if old := o.current[machine]; old != ir.NoState {
		for _, t := range o.stateTimers[old] {
			o.host.Timers.StopTimer(t.id)
		}
		o.runStateReceivers(old, env.SignalStop)
		for _, a := range o.class.State(old).Actions {
			o.StopAction(a)
		}
	}
	o.current[machine] = state
	if state == ir.NoState {
		return true
	}
	o.runStateReceivers(state, env.SignalStart)
	for _, a := range o.class.State(state).Actions {
		o.StartAction(a)
	}
	for _, t := range o.stateTimers[state] {
		if t.params.AutoStart {
			o.host.Timers.StartTimer(t.id)
		}
	}
	o.logger.Debug("state changed", "machine", machine, "state", o.class.State(state).Name)
	return true
}

func (o *Object) runStateReceivers(state int, signal ir.GUID) {
	sig := ir.NewSignal(signal)
	for _, r := range o.class.State(state).SignalReceivers {
		if sig.Matches(r.SignalGUID, r.SenderGUID) {
			o.runGraph(r.Graph, nil)
		}
	}
}

// runGraph executes graph idx. A non-nil error means the execution was
// aborted and its result is partial.
func (o *Object) runGraph(idx int, params []ir.Value) (graph.Result, error) {
	if idx < 0 || idx >= len(o.graphs) {
		return graph.Result{TargetState: ir.NoState}, nil
	}
	return o.graphs[idx].Execute(o, params, ir.Activation{Kind: ir.ActivateSignal, Node: -1})
}

// CurrentState returns the current state index of machine, ir.NoState
// when it has none or the machine does not exist.
func (o *Object) CurrentState(machine int) int {
	if machine < 0 || machine >= len(o.current) {
		return ir.NoState
	}
	return o.current[machine]
}

// CurrentStateName returns the name of the current state of machine, or
// an empty string.
func (o *Object) CurrentStateName(machine int) string {
	if st := o.class.State(o.CurrentState(machine)); st != nil {
		return st.Name
	}
	return ""
}

// VariableByName returns the current value of a class variable.
func (o *Object) VariableByName(name string) (ir.Value, bool) {
	idx := o.class.FindVariableByName(name)
	if idx < 0 {
		return nil, false
	}
	return o.scratch.Get(o.class.Variables()[idx].Offset), true
}

// Variable implements ir.Target.
func (o *Object) Variable(offset int) ir.Value { return o.scratch.Get(offset) }

// SetVariable implements ir.Target.
func (o *Object) SetVariable(offset int, v ir.Value) bool { return o.scratch.Set(offset, v) }

// StartTimer starts class timer idx from zero.
func (o *Object) StartTimer(idx int) bool {
	if idx < 0 || idx >= len(o.timers) {
		return false
	}
	return o.host.Timers.StartTimer(o.timers[idx].id)
}

// StopTimer stops class timer idx.
func (o *Object) StopTimer(idx int) bool {
	if idx < 0 || idx >= len(o.timers) {
		return false
	}
	return o.host.Timers.StopTimer(o.timers[idx].id)
}

// TimerActive reports whether class timer idx runs.
func (o *Object) TimerActive(idx int) bool {
	return idx >= 0 && idx < len(o.timers) && o.host.Timers.IsActive(o.timers[idx].id)
}

// StateTimerActive reports whether timer j of state runs.
func (o *Object) StateTimerActive(state, j int) bool {
	if state < 0 || state >= len(o.stateTimers) || j < 0 || j >= len(o.stateTimers[state]) {
		return false
	}
	return o.host.Timers.IsActive(o.stateTimers[state][j].id)
}

// StartAction starts action idx. Starting a running action is a no-op.
func (o *Object) StartAction(idx int) bool {
	if idx < 0 || idx >= len(o.actions) {
		return false
	}
	a := &o.actions[idx]
	if a.running {
		return true
	}
	if err := a.native.Start(); err != nil {
		o.logger.Warn("action start failed", "action", o.class.Actions()[idx].Name, "error", err)
		return false
	}
	a.running = true
	return true
}

// StopAction stops action idx. Stopping an idle action is a no-op.
func (o *Object) StopAction(idx int) bool {
	if idx < 0 || idx >= len(o.actions) {
		return false
	}
	a := &o.actions[idx]
	if a.running {
		a.native.Stop()
		a.running = false
	}
	return true
}

// ActionRunning reports whether action idx runs.
func (o *Object) ActionRunning(idx int) bool {
	return idx >= 0 && idx < len(o.actions) && o.actions[idx].running
}

// ExecuteFunction runs function idx with params. Signals raised during the
// call are queued and dispatched when it returns, unless an outer caller
// was already queuing.
func (o *Object) ExecuteFunction(idx int, params []ir.Value) bool {
	fns := o.class.Functions()
	if idx < 0 || idx >= len(fns) || fns[idx].Graph < 0 {
		return false
	}
	if o.callDepth >= maxCallDepth {
		o.logger.Warn("function call depth exceeded", "function", fns[idx].Name, "depth", o.callDepth)
		return false
	}
	o.callDepth++
	o.deferSignals(func() { o.runGraph(fns[idx].Graph, params) })
	o.callDepth--
	return true
}

// CallFunction runs the function called name.
func (o *Object) CallFunction(name string, params ...ir.Value) bool {
	return o.ExecuteFunction(o.class.FindFunctionByName(name), params)
}

var _ ir.Target = (*Object)(nil)
