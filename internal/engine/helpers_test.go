package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/compiler"
	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/nodes"
	"github.com/roach88/graphscript/internal/script"
	"github.com/roach88/graphscript/internal/testutil"
)

// recorder collects the labels of executed recordNodes in order.
type recorder struct {
	events []string
}

// recordNode appends its label, and the first parameter of the running
// signal when there is one, to a recorder.
type recordNode struct {
	label string
	rec   *recorder
}

func (*recordNode) Ports() ([]script.Port, []script.Port) {
	return []script.Port{{ID: nodes.PortIn, Flags: ir.PortFlow}},
		[]script.Port{{ID: nodes.PortOut, Flags: ir.PortFlow}}
}

func (n *recordNode) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		event := n.label
		if p := ctx.Param(0); p != (ir.Null{}) {
			event += ":" + ir.Format(p)
		}
		n.rec.events = append(n.rec.events, event)
		return ir.Continue(0)
	})
	return nil
}

func recordGraph(name string, rec *recorder) *script.Graph {
	return testutil.Graph(name).
		Node("begin", &nodes.Begin{}).
		Node("rec", &recordNode{label: name, rec: rec}).
		Link("begin.out", "rec.in").
		Build()
}

func receiver(name string, signal ir.GUID, g *script.Graph) *script.SignalReceiver {
	return &script.SignalReceiver{Header: testutil.Header("receiver", name), Signal: signal, Graph: g}
}

func state(name string, children ...script.Element) *script.State {
	return script.Append(&script.State{Header: testutil.Header("state", name)}, children...)
}

func timer(name string, frames int, autoStart bool) *script.Timer {
	return &script.Timer{
		Header: testutil.Header("timer", name),
		Params: ir.TimerParams{Unit: ir.TimerFrames, Frames: frames, Repeat: true, AutoStart: autoStart},
	}
}

func variable(name string, def int64, public bool) *script.Variable {
	return &script.Variable{Header: testutil.Header("variable", name), TypeGUID: env.TypeInt, Default: ir.Int(def), Public: public}
}

func compileClass(t *testing.T, h *host.Context, cls *script.Class) *ir.RuntimeClass {
	t.Helper()
	h.Scripts.Add(cls)
	res, err := compiler.New(h).CompileClass(cls)
	require.NoError(t, err)
	return res.Class
}

func spawn(t *testing.T, h *host.Context, rc *ir.RuntimeClass, opts ...PoolOption) (*ObjectPool, *Object) {
	t.Helper()
	pool := NewObjectPool(h, opts...)
	t.Cleanup(pool.Close)
	obj, err := pool.CreateObject(rc.GUID(), nil)
	require.NoError(t, err)
	return pool, obj
}
