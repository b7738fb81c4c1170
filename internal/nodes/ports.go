package nodes

import (
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// Standard port ids.
const (
	PortIn    = "in"
	PortOut   = "out"
	PortValue = "value"
)

func flowIn() script.Port { return script.Port{ID: PortIn, Flags: ir.PortFlow} }
func flowOut(id string) script.Port {
	return script.Port{ID: id, Flags: ir.PortFlow}
}
func dataIn(id string, def ir.Value) script.Port {
	return script.Port{ID: id, Flags: ir.PortData, Default: def}
}
func dataOut(id string) script.Port { return script.Port{ID: id, Flags: ir.PortData} }
func pullOut(id string) script.Port { return script.Port{ID: id, Flags: ir.PortData | ir.PortPull} }

func paramPorts(n int) []script.Port {
	ports := make([]script.Port, n)
	for i := range ports {
		ports[i] = dataIn(fmt.Sprintf("p%d", i), ir.Null{})
	}
	return ports
}

// readParams collects n data inputs starting at port first.
func readParams(ctx ir.ExecContext, first, n int) []ir.Value {
	if n == 0 {
		return nil
	}
	params := make([]ir.Value, n)
	for i := range params {
		params[i] = ctx.Input(first + i)
	}
	return params
}
