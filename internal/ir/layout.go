package ir

import (
	"fmt"
	"strings"
)

// Dump renders a deterministic text description of a compiled class.
//
// The output covers every table in declaration order but leaves out the
// compile timestamp and node callbacks, so it is stable across recompiles
// of an unchanged script. It backs Fingerprint and the golden layout tests.
func Dump(rc *RuntimeClass) string {
	var b strings.Builder
	w := func(indent int, format string, args ...any) {
		b.WriteString(strings.Repeat("  ", indent))
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	w(0, "class %s %s", rc.name, rc.guid)
	w(1, "env %s", rc.envClass)
	for _, k := range rc.defaultProperties.SortedKeys() {
		w(1, "default %s = %s", k, Format(rc.defaultProperties[k]))
	}
	for i, v := range rc.scratch.values {
		w(1, "slot %d = %s", i, Format(v))
	}

	for i, v := range rc.variables {
		w(1, "variable %d %s %s type=%s offset=%d%s", i, v.Name, v.GUID, v.TypeGUID, v.Offset, publicSuffix(v.Public))
	}
	for i, t := range rc.timers {
		w(1, "timer %d %s", i, dumpTimer(t))
	}
	for i, ci := range rc.components {
		w(1, "component %d %s %s type=%s parent=%d deps=%v%s", i, ci.Name, ci.GUID, ci.TypeGUID, ci.Parent, ci.Dependencies, publicSuffix(ci.Public))
		for _, k := range ci.Properties.SortedKeys() {
			w(2, "%s = %s", k, Format(ci.Properties[k]))
		}
	}
	for i, a := range rc.actions {
		w(1, "action %d %s %s type=%s", i, a.Name, a.GUID, a.TypeGUID)
		for _, k := range a.Properties.SortedKeys() {
			w(2, "%s = %s", k, Format(a.Properties[k]))
		}
	}
	for i, f := range rc.functions {
		w(1, "function %d %s %s graph=%d", i, f.Name, f.GUID, f.Graph)
	}
	for i, c := range rc.constructors {
		w(1, "constructor %d %s graph=%d", i, c.GUID, c.Graph)
	}
	for i, r := range rc.signalReceivers {
		w(1, "receiver %d %s", i, dumpReceiver(r))
	}
	for i, m := range rc.stateMachines {
		w(1, "machine %d %s %s begin=%d", i, m.Name, m.GUID, m.BeginGraph)
	}
	for i, s := range rc.states {
		w(1, "state %d %s %s machine=%d parent=%d", i, s.Name, s.GUID, s.Machine, s.Parent)
		for j, t := range s.Timers {
			w(2, "timer %d %s", j, dumpTimer(t))
		}
		for j, r := range s.SignalReceivers {
			w(2, "receiver %d %s", j, dumpReceiver(r))
		}
		for j, t := range s.Transitions {
			w(2, "transition %d %s %s signal=%s sender=%s graph=%d target=%d", j, t.Name, t.GUID, t.SignalGUID, t.SenderGUID, t.Graph, t.Target)
		}
		if len(s.Actions) > 0 {
			w(2, "actions %v", s.Actions)
		}
	}

	for i, g := range rc.graphs {
		dumpGraph(&b, i, g)
	}
	return b.String()
}

func dumpGraph(b *strings.Builder, idx int, g *RuntimeGraph) {
	fmt.Fprintf(b, "  graph %d %s %s entry=%d\n", idx, g.name, g.guid, g.entry)
	for i, v := range g.scratch.values {
		fmt.Fprintf(b, "    slot %d = %s\n", i, Format(v))
	}
	for i, n := range g.nodes {
		fmt.Fprintf(b, "    node %d %s %s data=%d\n", i, n.Name, n.GUID, n.DataOffset)
		for p, id := range n.InputIDs {
			fmt.Fprintf(b, "      in %s %s offset=%d\n", id, flagAt(n.InputFlags, p), offsetAt(n.InputOffsets, p))
		}
		for p, id := range n.OutputIDs {
			fmt.Fprintf(b, "      out %s %s offset=%d\n", id, flagAt(n.OutputFlags, p), offsetAt(n.OutputOffsets, p))
		}
	}
	for _, set := range []struct {
		kind  string
		links []Link
	}{
		{"signal", g.signalLinks},
		{"flow", g.flowLinks},
		{"data", g.dataLinks},
		{"pull", g.pullLinks},
	} {
		for _, l := range set.links {
			fmt.Fprintf(b, "    link %s %s\n", set.kind, l)
		}
	}
}

func dumpTimer(t Timer) string {
	unit := "seconds=" + t.Params.Duration.String()
	if t.Params.Unit == TimerFrames {
		unit = fmt.Sprintf("frames=%d", t.Params.Frames)
	}
	return fmt.Sprintf("%s %s %s repeat=%t autostart=%t", t.Name, t.GUID, unit, t.Params.Repeat, t.Params.AutoStart)
}

func dumpReceiver(r SignalReceiver) string {
	return fmt.Sprintf("%s signal=%s sender=%s graph=%d", r.GUID, r.SignalGUID, r.SenderGUID, r.Graph)
}

func publicSuffix(public bool) string {
	if public {
		return " public"
	}
	return ""
}

func flagAt(flags []PortFlags, i int) PortFlags {
	if i < len(flags) {
		return flags[i]
	}
	return 0
}

func offsetAt(offsets []int, i int) int {
	if i < len(offsets) {
		return offsets[i]
	}
	return -1
}
