package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
)

// SignalNames maps signal GUIDs to the names scripts use for them: env
// signal names and the timer names of one class.
type SignalNames struct {
	env    *env.Registry
	timers map[string]ir.GUID
	names  map[ir.GUID]string
}

// NewSignalNames indexes the timers of rc, state timers included. rc may
// be nil.
func NewSignalNames(reg *env.Registry, rc *ir.RuntimeClass) *SignalNames {
	n := &SignalNames{env: reg, timers: map[string]ir.GUID{}, names: map[ir.GUID]string{}}
	if rc == nil {
		return n
	}
	add := func(t ir.Timer) {
		n.timers[t.Name] = t.GUID
		n.names[t.GUID] = t.Name
	}
	for _, t := range rc.Timers() {
		add(t)
	}
	for _, st := range rc.States() {
		for _, t := range st.Timers {
			add(t)
		}
	}
	return n
}

// Name returns the env signal or timer name of guid, or its string form.
func (n *SignalNames) Name(guid ir.GUID) string {
	if d := n.env.GetSignal(guid); d != nil {
		return d.Name
	}
	if name, ok := n.names[guid]; ok {
		return name
	}
	return guid.String()
}

// Resolve looks name up as an env signal, then as a timer, then parses it
// as a GUID.
func (n *SignalNames) Resolve(name string) (ir.GUID, error) {
	if d := n.env.SignalByName(name); d != nil {
		return d.GUID, nil
	}
	if g, ok := n.timers[name]; ok {
		return g, nil
	}
	if id, err := uuid.Parse(name); err == nil {
		return id, nil
	}
	return ir.NilGUID, fmt.Errorf("unknown signal %q", name)
}
