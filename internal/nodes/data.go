package nodes

import (
	"fmt"
	"strings"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// Constant outputs a fixed value.
type Constant struct {
	Value any `json:"value"`
}

func (*Constant) Ports() ([]script.Port, []script.Port) {
	return nil, []script.Port{pullOut(PortValue)}
}

func (n *Constant) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	v, err := ir.FromAny(n.Value)
	if err != nil {
		return fmt.Errorf("constant: %w", err)
	}
	nc.BindData(v)
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.SetOutput(0, ctx.Data())
		return ir.Stop
	})
	return nil
}

// GetVariable reads a class variable.
type GetVariable struct {
	Variable string `json:"variable"`
}

func (*GetVariable) Ports() ([]script.Port, []script.Port) {
	return nil, []script.Port{pullOut(PortValue)}
}

func (n *GetVariable) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	off := cc.VariableOffset(n.Variable)
	if off < 0 {
		return fmt.Errorf("get variable: unknown variable %q", n.Variable)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.SetOutput(0, ctx.Target().Variable(off))
		return ir.Stop
	})
	return nil
}

// SetVariable writes a class variable and passes the value on.
type SetVariable struct {
	Variable string `json:"variable"`
}

func (*SetVariable) Ports() ([]script.Port, []script.Port) {
	return []script.Port{flowIn(), dataIn(PortValue, nil)},
		[]script.Port{flowOut(PortOut), dataOut(PortValue)}
}

func (n *SetVariable) Compile(cc script.CompileContext, nc script.NodeCompiler) error {
	off := cc.VariableOffset(n.Variable)
	if off < 0 {
		return fmt.Errorf("set variable: unknown variable %q", n.Variable)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		v := ctx.Input(1)
		if !ctx.Target().SetVariable(off, v) {
			ctx.Logger().Warn("set variable failed", "variable", n.Variable, "value", ir.Format(v))
		}
		ctx.SetOutput(1, v)
		return ir.Continue(0)
	})
	return nil
}

// SignalParam reads a parameter of the signal or call being executed.
type SignalParam struct {
	Index int `json:"index"`
}

func (*SignalParam) Ports() ([]script.Port, []script.Port) {
	return nil, []script.Port{pullOut(PortValue)}
}

func (n *SignalParam) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	if n.Index < 0 {
		return fmt.Errorf("signal param: negative index %d", n.Index)
	}
	idx := n.Index
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.SetOutput(0, ctx.Param(idx))
		return ir.Stop
	})
	return nil
}

// Add sums numbers or concatenates strings.
type Add struct{}

func (*Add) Ports() ([]script.Port, []script.Port) {
	return []script.Port{dataIn("a", ir.Int(0)), dataIn("b", ir.Int(0))}, []script.Port{pullOut("sum")}
}

func (*Add) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		ctx.SetOutput(0, add(ctx.Input(0), ctx.Input(1)))
		return ir.Stop
	})
	return nil
}

func add(a, b ir.Value) ir.Value {
	if as, ok := a.(ir.String); ok {
		return ir.String(string(as) + formatPlain(b))
	}
	ai, aInt := a.(ir.Int)
	bi, bInt := b.(ir.Int)
	if aInt && bInt {
		return ai + bi
	}
	af, aok := ir.AsFloat(a)
	bf, bok := ir.AsFloat(b)
	if aok && bok {
		return ir.Float(af + bf)
	}
	return ir.Null{}
}

func formatPlain(v ir.Value) string {
	if s, ok := v.(ir.String); ok {
		return string(s)
	}
	return ir.Format(v)
}

// Compare compares two values. Op is one of == != < <= > >=.
type Compare struct {
	Op string `json:"op"`
}

var compareOps = map[string]func(c int) bool{
	"==": func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	"<":  func(c int) bool { return c < 0 },
	"<=": func(c int) bool { return c <= 0 },
	">":  func(c int) bool { return c > 0 },
	">=": func(c int) bool { return c >= 0 },
}

func (*Compare) Ports() ([]script.Port, []script.Port) {
	return []script.Port{dataIn("a", ir.Int(0)), dataIn("b", ir.Int(0))}, []script.Port{pullOut("result")}
}

func (n *Compare) Compile(_ script.CompileContext, nc script.NodeCompiler) error {
	op := n.Op
	if op == "" {
		op = "=="
	}
	test, ok := compareOps[op]
	if !ok {
		return fmt.Errorf("compare: unknown operator %q", n.Op)
	}
	nc.BindCallback(func(ctx ir.ExecContext) ir.Outcome {
		c, ok := compare(ctx.Input(0), ctx.Input(1))
		if !ok {
			// Incomparable values are only ever unequal
			ctx.SetOutput(0, ir.Bool(op == "!="))
			return ir.Stop
		}
		ctx.SetOutput(0, ir.Bool(test(c)))
		return ir.Stop
	})
	return nil
}

func compare(a, b ir.Value) (int, bool) {
	if af, ok := ir.AsFloat(a); ok {
		bf, ok := ir.AsFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(ir.String); ok {
		bs, ok := b.(ir.String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(as), string(bs)), true
	}
	if ir.Equal(a, b) {
		return 0, true
	}
	return 0, false
}
