package nodes

import (
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// Begin starts a graph.
type Begin struct{}

func (*Begin) Ports() ([]script.Port, []script.Port) {
	return nil, []script.Port{{ID: PortOut, Flags: ir.PortSignal}}
}

func (*Begin) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	nc.BindCallback(func(ir.ExecContext) ir.Outcome { return ir.Continue(0) })
	return nil
}

// Sequence runs each of its outputs in order.
type Sequence struct {
	Count int `json:"count"`
}

func (n *Sequence) Ports() ([]script.Port, []script.Port) {
	outs := make([]script.Port, n.count())
	for i := range outs {
		outs[i] = flowOut(fmt.Sprintf("then%d", i))
	}
	return []script.Port{flowIn()}, outs
}

func (n *Sequence) count() int {
	if n.Count <= 0 {
		return 2
	}
	return n.Count
}

func (n *Sequence) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	count := n.count()
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		for i := range count {
			ctx.Trigger(i)
		}
		return ir.Stop
	})
	return nil
}

// Branch follows "true" or "false" depending on its condition input.
type Branch struct{}

func (*Branch) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn(), dataIn("cond", ir.Bool(false))},
		[]script.Port{flowOut("true"), flowOut("false")}
}

func (*Branch) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		if ok, _ := ir.AsBool(ctx.Input(1)); ok {
			return ir.Continue(0)
		}
		return ir.Continue(1)
	})
	return nil
}

// Log writes its message and value input to the graph logger.
type Log struct {
	Message string `json:"message"`
}

func (*Log) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn(), dataIn(PortValue, ir.Null{})}, []script.Port{flowOut(PortOut)}
}

func (n *Log) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	msg := n.Message
	nc.BindData(ir.String(msg))
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.Logger().Info("script log",
			"message", msg,
			"value", ir.Format(ctx.Input(1)),
			"object", ctx.Target().GUID())
		return ir.Continue(0)
	})
	return nil
}
