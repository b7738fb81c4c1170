package nodes

import (
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// RaiseSignal dispatches a signal to the executing object with no sender.
type RaiseSignal struct {
	Signal string `json:"signal"`
	Params int    `json:"params"`
}

func (n *RaiseSignal) Ports() ([]script.Port, []script.Port) {
	return append([]script.Port{flowIn()}, paramPorts(n.Params)...), []script.Port{flowOut(PortOut)}
}

func (n *RaiseSignal) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	return compileRaise(cc, nc, n.Signal, n.Params, false)
}

// SendSignal dispatches a signal to the executing object with the object
// itself as sender, so sender-filtered receivers can tell it apart.
type SendSignal struct {
	Signal string `json:"signal"`
	Params int    `json:"params"`
}

func (n *SendSignal) Ports() ([]script.Port, []script.Port) {
	return append([]script.Port{flowIn()}, paramPorts(n.Params)...), []script.Port{flowOut(PortOut)}
}

func (n *SendSignal) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	return compileRaise(cc, nc, n.Signal, n.Params, true)
}

func compileRaise(cc script.CompileContext, nc script.NodeCompiler, name string, params int, withSender bool) error {
	typ, ok := cc.SignalGUID(name)
	if !ok {
		return fmt.Errorf("raise signal: unknown signal %q", name)
	}
	nc.BindData(ir.GUIDValue(typ))
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		sig := ir.NewSignal(typ, readParams(ctx, 1, params)...)
		if withSender {
			sig.Sender = ctx.Target().GUID()
		}
		ctx.Target().ProcessSignal(sig)
		return ir.Continue(0)
	})
	return nil
}

// GoToState selects the target state of a transition graph or a state
// machine's begin graph.
type GoToState struct {
	State string `json:"state"`
}

func (*GoToState) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn()}, nil
}

func (n *GoToState) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.StateIndex(n.State)
	if idx < 0 {
		return fmt.Errorf("go to state: unknown state %q", n.State)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.SetTargetState(idx)
		return ir.Stop
	})
	return nil
}

// StartTimer starts a class timer.
type StartTimer struct {
	Timer string `json:"timer"`
}

func (*StartTimer) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn()}, []script.Port{flowOut(PortOut)}
}

func (n *StartTimer) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.TimerIndex(n.Timer)
	if idx < 0 {
		return fmt.Errorf("start timer: unknown timer %q", n.Timer)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.Target().StartTimer(idx)
		return ir.Continue(0)
	})
	return nil
}

// StopTimer stops a class timer.
type StopTimer struct {
	Timer string `json:"timer"`
}

func (*StopTimer) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn()}, []script.Port{flowOut(PortOut)}
}

func (n *StopTimer) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.TimerIndex(n.Timer)
	if idx < 0 {
		return fmt.Errorf("stop timer: unknown timer %q", n.Timer)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.Target().StopTimer(idx)
		return ir.Continue(0)
	})
	return nil
}

// StartAction starts a class action.
type StartAction struct {
	Action string `json:"action"`
}

func (*StartAction) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn()}, []script.Port{flowOut(PortOut)}
}

func (n *StartAction) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.ActionIndex(n.Action)
	if idx < 0 {
		return fmt.Errorf("start action: unknown action %q", n.Action)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.Target().StartAction(idx)
		return ir.Continue(0)
	})
	return nil
}

// StopAction stops a class action. Stopping a stopped action is a no-op.
type StopAction struct {
	Action string `json:"action"`
}

func (*StopAction) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn()}, []script.Port{flowOut(PortOut)}
}

func (n *StopAction) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.ActionIndex(n.Action)
	if idx < 0 {
		return fmt.Errorf("stop action: unknown action %q", n.Action)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.Target().StopAction(idx)
		return ir.Continue(0)
	})
	return nil
}

// CallFunction executes a class function with its data inputs as parameters.
type CallFunction struct {
	Function string `json:"function"`
	Params   int    `json:"params"`
}

func (n *CallFunction) Ports() ([]script.Port, []script.Port) {
	return append([]script.Port{flowIn()}, paramPorts(n.Params)...), []script.Port{flowOut(PortOut)}
}

func (n *CallFunction) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	idx := cc.FunctionIndex(n.Function)
	if idx < 0 {
		return fmt.Errorf("call function: unknown function %q", n.Function)
	}
	params := n.Params
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		if !ctx.Target().ExecuteFunction(idx, readParams(ctx, 1, params)) {
			ctx.Logger().Warn("function call failed", "function", n.Function)
		}
		return ir.Continue(0)
	})
	return nil
}
