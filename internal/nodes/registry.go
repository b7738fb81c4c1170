package nodes

import (
	"fmt"
	"slices"

	"github.com/roach88/graphscript/internal/script"
)

var constructors = map[string]func() script.NodeImpl{
	"Begin":        func() script.NodeImpl { return &Begin{} },
	"Sequence":     func() script.NodeImpl { return &Sequence{} },
	"Branch":       func() script.NodeImpl { return &Branch{} },
	"Log":          func() script.NodeImpl { return &Log{} },
	"Constant":     func() script.NodeImpl { return &Constant{} },
	"GetVariable":  func() script.NodeImpl { return &GetVariable{} },
	"SetVariable":  func() script.NodeImpl { return &SetVariable{} },
	"SignalParam":  func() script.NodeImpl { return &SignalParam{} },
	"Add":          func() script.NodeImpl { return &Add{} },
	"Compare":      func() script.NodeImpl { return &Compare{} },
	"RaiseSignal":  func() script.NodeImpl { return &RaiseSignal{} },
	"SendSignal":   func() script.NodeImpl { return &SendSignal{} },
	"GoToState":    func() script.NodeImpl { return &GoToState{} },
	"StartTimer":   func() script.NodeImpl { return &StartTimer{} },
	"StopTimer":    func() script.NodeImpl { return &StopTimer{} },
	"StartAction":  func() script.NodeImpl { return &StartAction{} },
	"StopAction":   func() script.NodeImpl { return &StopAction{} },
	"CallFunction": func() script.NodeImpl { return &CallFunction{} },
}

// New returns a zero-configured node of the named type. The caller decodes
// configuration into it before building ports.
func New(typeName string) (script.NodeImpl, error) {
	ctor, ok := constructors[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", typeName)
	}
	return ctor(), nil
}

// Types lists the registered node type names in sorted order.
func Types() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
