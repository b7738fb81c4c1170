package loader

import (
	"time"

	"cuelang.org/go/cue"
	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// scope carries the names visible to an element while its class is parsed.
type scope struct {
	path       string
	class      string
	timers     map[string]ir.GUID
	components map[string]ir.GUID
	states     map[string]ir.GUID // states of the enclosing machine
}

func (s *scope) child(path string) *scope {
	timers := make(map[string]ir.GUID, len(s.timers))
	for k, v := range s.timers {
		timers[k] = v
	}
	return &scope{path: path, class: s.class, timers: timers, components: s.components, states: s.states}
}

// parseClasses parses every class. Class GUIDs are collected first so a
// base may name a class declared later in the package.
func (l *loader) parseClasses(v cue.Value) []*script.Class {
	l.classes = map[string]*script.Class{}
	l.eachField(v, func(name string, cv cue.Value) error {
		guid, err := elementGUID(cv, "class/"+name)
		if err != nil {
			return err
		}
		file, _, err := optString(cv, "file")
		if err != nil {
			return err
		}
		l.classes[name] = &script.Class{Header: script.Header{ID: guid, Label: name}, File: file}
		return nil
	})
	if l.stopped() {
		return nil
	}

	var out []*script.Class
	l.eachField(v, func(name string, cv cue.Value) error {
		cls, ok := l.classes[name]
		if !ok {
			return nil
		}
		if err := l.parseClass(cls, cv); err != nil {
			return err
		}
		out = append(out, cls)
		return nil
	})
	return out
}

func (l *loader) parseClass(cls *script.Class, v cue.Value) error {
	name := cls.Name()
	s := &scope{path: "class/" + name, class: name, timers: map[string]ir.GUID{}, components: map[string]ir.GUID{}}

	if bv := field(v, "base"); bv.Exists() {
		target, err := bv.String()
		if err != nil {
			return formatCUEError(err)
		}
		guid, err := l.resolveBase(bv, target)
		if err != nil {
			return err
		}
		script.Append(cls, &script.Base{Header: script.Header{ID: GUIDFor(s.path + "/base"), Label: target}, Target: guid})
	}

	// Timer and component names must be known before receivers refer to them.
	l.eachField(field(v, "timers"), func(tn string, tv cue.Value) error {
		guid, err := elementGUID(tv, s.path+"/timers/"+tn)
		if err != nil {
			return err
		}
		s.timers[tn] = guid
		return nil
	})
	l.collectComponents(field(v, "components"), s.path+"/components", s.components)

	l.eachField(field(v, "components"), func(cn string, cv cue.Value) error {
		c, err := l.parseComponent(s.path+"/components", cn, cv)
		if err != nil {
			return err
		}
		script.Append(cls, c)
		return nil
	})
	l.eachField(field(v, "variables"), func(vn string, vv cue.Value) error {
		e, err := l.parseVariable(s.path+"/variables/"+vn, vn, vv)
		if err != nil {
			return err
		}
		script.Append(cls, e)
		return nil
	})
	l.appendTimers(cls, field(v, "timers"), s)
	l.appendActions(cls, field(v, "actions"), s.path+"/actions")
	l.eachField(field(v, "constructors"), func(cn string, cv cue.Value) error {
		path := s.path + "/constructors/" + cn
		guid, err := elementGUID(cv, path)
		if err != nil {
			return err
		}
		g, err := l.parseGraph(field(cv, "graph"), path+"/graph", cn)
		if err != nil {
			return err
		}
		script.Append(cls, &script.Constructor{Header: script.Header{ID: guid, Label: cn}, Graph: g})
		return nil
	})
	l.eachField(field(v, "functions"), func(fn string, fv cue.Value) error {
		path := s.path + "/functions/" + fn
		guid, err := elementGUID(fv, path)
		if err != nil {
			return err
		}
		public, err := optBool(fv, "public")
		if err != nil {
			return err
		}
		g, err := l.parseGraph(field(fv, "graph"), path+"/graph", fn)
		if err != nil {
			return err
		}
		script.Append(cls, &script.Function{Header: script.Header{ID: guid, Label: fn}, Public: public, Graph: g})
		return nil
	})
	l.appendReceivers(cls, field(v, "receivers"), s)
	l.eachField(field(v, "state_machines"), func(mn string, mv cue.Value) error {
		m, err := l.parseMachine(s.child(s.path+"/state_machines/"+mn), mn, mv)
		if err != nil {
			return err
		}
		script.Append(cls, m)
		return nil
	})
	return nil
}

func (l *loader) resolveBase(v cue.Value, target string) (ir.GUID, error) {
	if c := l.env.ClassByName(target); c != nil {
		return c.GUID, nil
	}
	if c, ok := l.classes[target]; ok {
		return c.GUID(), nil
	}
	if id, err := uuid.Parse(target); err == nil {
		return id, nil
	}
	return ir.NilGUID, newLoadError(ErrCodeUnknownName, v.Pos(), "base %q is neither an env class nor a script class", target)
}

// collectComponents records component instance names, nested ones included,
// so receivers can name a component as their sender.
func (l *loader) collectComponents(v cue.Value, path string, into map[string]ir.GUID) {
	l.eachField(v, func(cn string, cv cue.Value) error {
		// A bad guid is reported when the instance itself is parsed.
		if guid, err := elementGUID(cv, path+"/"+cn); err == nil {
			into[cn] = guid
		}
		l.collectComponents(field(cv, "components"), path+"/"+cn+"/components", into)
		return nil
	})
}

func (l *loader) parseComponent(parent, name string, v cue.Value) (*script.ComponentInstance, error) {
	path := parent + "/" + name
	guid, err := elementGUID(v, path)
	if err != nil {
		return nil, err
	}
	typeName, ok, err := optString(v, "type")
	if err != nil {
		return nil, err
	}
	if !ok {
		typeName = name
	}
	desc := l.env.ComponentByName(typeName)
	if desc == nil {
		return nil, newLoadError(ErrCodeUnknownName, v.Pos(), "component %s: unknown component type %q", name, typeName)
	}
	public, err := optBool(v, "public")
	if err != nil {
		return nil, err
	}
	props, err := toProperties(field(v, "properties"))
	if err != nil {
		return nil, err
	}
	xf := ir.IdentityTransform
	if xf.Position, err = toVector(field(v, "position"), xf.Position); err != nil {
		return nil, err
	}
	if xf.Rotation, err = toVector(field(v, "rotation"), xf.Rotation); err != nil {
		return nil, err
	}
	if xf.Scale, err = toVector(field(v, "scale"), xf.Scale); err != nil {
		return nil, err
	}
	c := &script.ComponentInstance{
		Header:     script.Header{ID: guid, Label: name},
		TypeGUID:   desc.GUID,
		Public:     public,
		Transform:  xf,
		Properties: props,
	}
	l.eachField(field(v, "components"), func(cn string, cv cue.Value) error {
		child, err := l.parseComponent(path+"/components", cn, cv)
		if err != nil {
			return err
		}
		script.Append(c, child)
		return nil
	})
	return c, nil
}

func (l *loader) parseVariable(path, name string, v cue.Value) (*script.Variable, error) {
	guid, err := elementGUID(v, path)
	if err != nil {
		return nil, err
	}
	typeName, ok, err := optString(v, "type")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newLoadError(ErrCodeInvalidValue, v.Pos(), "variable %s: type is required", name)
	}
	// An unknown type keeps a derived GUID; the compiler reports it.
	typeGUID := GUIDFor("env/type/" + typeName)
	if dt := l.env.DataTypeByName(typeName); dt != nil {
		typeGUID = dt.GUID
	}
	public, err := optBool(v, "public")
	if err != nil {
		return nil, err
	}
	var def ir.Value
	if dv := field(v, "default"); dv.Exists() {
		if def, err = toValue(dv); err != nil {
			return nil, err
		}
	}
	return &script.Variable{Header: script.Header{ID: guid, Label: name}, TypeGUID: typeGUID, Default: def, Public: public}, nil
}

func (l *loader) appendTimers(parent script.Element, v cue.Value, s *scope) {
	l.eachField(v, func(tn string, tv cue.Value) error {
		params, err := parseTimerParams(tn, tv)
		if err != nil {
			return err
		}
		t := &script.Timer{Header: script.Header{ID: s.timers[tn], Label: tn}, Params: params}
		appendTo(parent, t)
		return nil
	})
}

func parseTimerParams(name string, v cue.Value) (ir.TimerParams, error) {
	var p ir.TimerParams
	sv, fv := field(v, "seconds"), field(v, "frames")
	switch {
	case sv.Exists() && fv.Exists():
		return p, newLoadError(ErrCodeInvalidTimer, v.Pos(), "timer %s: seconds and frames are exclusive", name)
	case sv.Exists():
		secs, err := sv.Float64()
		if err != nil {
			return p, formatCUEError(err)
		}
		if secs <= 0 {
			return p, newLoadError(ErrCodeInvalidTimer, sv.Pos(), "timer %s: seconds must be positive", name)
		}
		p.Unit = ir.TimerSeconds
		p.Duration = time.Duration(secs * float64(time.Second))
	case fv.Exists():
		frames, err := fv.Int64()
		if err != nil {
			return p, formatCUEError(err)
		}
		if frames <= 0 {
			return p, newLoadError(ErrCodeInvalidTimer, fv.Pos(), "timer %s: frames must be positive", name)
		}
		p.Unit = ir.TimerFrames
		p.Frames = int(frames)
	default:
		return p, newLoadError(ErrCodeInvalidTimer, v.Pos(), "timer %s: one of seconds or frames is required", name)
	}
	var err error
	if p.Repeat, err = optBool(v, "repeat"); err != nil {
		return p, err
	}
	if p.AutoStart, err = optBool(v, "auto_start"); err != nil {
		return p, err
	}
	return p, nil
}

func (l *loader) appendActions(parent script.Element, v cue.Value, path string) {
	l.eachField(v, func(an string, av cue.Value) error {
		guid, err := elementGUID(av, path+"/"+an)
		if err != nil {
			return err
		}
		typeName, ok, err := optString(av, "type")
		if err != nil {
			return err
		}
		if !ok {
			typeName = an
		}
		desc := l.env.ActionByName(typeName)
		if desc == nil {
			return newLoadError(ErrCodeUnknownName, av.Pos(), "action %s: unknown action type %q", an, typeName)
		}
		props, err := toProperties(field(av, "properties"))
		if err != nil {
			return err
		}
		appendTo(parent, &script.ActionInstance{Header: script.Header{ID: guid, Label: an}, TypeGUID: desc.GUID, Properties: props})
		return nil
	})
}

func (l *loader) appendReceivers(parent script.Element, v cue.Value, s *scope) {
	l.eachField(v, func(rn string, rv cue.Value) error {
		path := s.path + "/receivers/" + rn
		guid, err := elementGUID(rv, path)
		if err != nil {
			return err
		}
		sig, sender, err := l.parseTrigger(rn, rv, s)
		if err != nil {
			return err
		}
		g, err := l.parseGraph(field(rv, "graph"), path+"/graph", rn)
		if err != nil {
			return err
		}
		appendTo(parent, &script.SignalReceiver{Header: script.Header{ID: guid, Label: rn}, Signal: sig, Sender: sender, Graph: g})
		return nil
	})
}

// parseTrigger resolves the signal and optional sender of a receiver or
// transition. A signal names an env signal, a timer in scope, or is a GUID.
// A sender names a component instance of the class or is a GUID.
func (l *loader) parseTrigger(name string, v cue.Value, s *scope) (sig, sender ir.GUID, err error) {
	sv := field(v, "signal")
	sigName, ok, err := optString(v, "signal")
	if err != nil {
		return sig, sender, err
	}
	if !ok {
		return sig, sender, newLoadError(ErrCodeInvalidValue, v.Pos(), "%s: signal is required", name)
	}
	switch {
	case l.env.SignalByName(sigName) != nil:
		sig = l.env.SignalByName(sigName).GUID
	case s.timers[sigName] != ir.NilGUID:
		sig = s.timers[sigName]
	default:
		id, perr := uuid.Parse(sigName)
		if perr != nil {
			return sig, sender, newLoadError(ErrCodeUnknownName, sv.Pos(), "%s: unknown signal %q", name, sigName)
		}
		sig = id
	}

	senderName, ok, err := optString(v, "sender")
	if err != nil || !ok {
		return sig, sender, err
	}
	if g, found := s.components[senderName]; found {
		return sig, g, nil
	}
	id, perr := uuid.Parse(senderName)
	if perr != nil {
		return sig, sender, newLoadError(ErrCodeUnknownName, field(v, "sender").Pos(), "%s: unknown sender %q", name, senderName)
	}
	return sig, id, nil
}

func (l *loader) parseMachine(s *scope, name string, v cue.Value) (*script.StateMachine, error) {
	guid, err := elementGUID(v, s.path)
	if err != nil {
		return nil, err
	}
	m := &script.StateMachine{Header: script.Header{ID: guid, Label: name}}
	if bv := field(v, "begin"); bv.Exists() {
		if m.Begin, err = l.parseGraph(bv, s.path+"/begin", name+".begin"); err != nil {
			return nil, err
		}
	}

	// State names are unique per machine so targets can name nested states.
	s.states = map[string]ir.GUID{}
	if err := collectStates(name, field(v, "states"), s.path+"/states", s.states); err != nil {
		return nil, err
	}

	l.eachField(field(v, "states"), func(sn string, sv cue.Value) error {
		st, err := l.parseState(s.child(s.path+"/states/"+sn), sn, sv)
		if err != nil {
			return err
		}
		script.Append(m, st)
		return nil
	})
	return m, nil
}

func (l *loader) parseState(s *scope, name string, v cue.Value) (*script.State, error) {
	st := &script.State{Header: script.Header{ID: s.states[name], Label: name}}
	l.eachField(field(v, "timers"), func(tn string, tv cue.Value) error {
		guid, err := elementGUID(tv, s.path+"/timers/"+tn)
		if err != nil {
			return err
		}
		s.timers[tn] = guid
		return nil
	})
	l.appendTimers(st, field(v, "timers"), s)
	l.appendActions(st, field(v, "actions"), s.path+"/actions")
	l.appendReceivers(st, field(v, "receivers"), s)
	l.eachField(field(v, "transitions"), func(tn string, tv cue.Value) error {
		t, err := l.parseTransition(s, tn, tv)
		if err != nil {
			return err
		}
		script.Append(st, t)
		return nil
	})
	l.eachField(field(v, "states"), func(sn string, sv cue.Value) error {
		child, err := l.parseState(s.child(s.path+"/states/"+sn), sn, sv)
		if err != nil {
			return err
		}
		script.Append(st, child)
		return nil
	})
	return st, nil
}

func (l *loader) parseTransition(s *scope, name string, v cue.Value) (*script.Transition, error) {
	path := s.path + "/transitions/" + name
	guid, err := elementGUID(v, path)
	if err != nil {
		return nil, err
	}
	sig, sender, err := l.parseTrigger(name, v, s)
	if err != nil {
		return nil, err
	}
	t := &script.Transition{Header: script.Header{ID: guid, Label: name}, Signal: sig, Sender: sender}
	if target, ok, err := optString(v, "target"); err != nil {
		return nil, err
	} else if ok {
		id, found := s.states[target]
		if !found {
			return nil, newLoadError(ErrCodeUnknownState, field(v, "target").Pos(), "transition %s: unknown target state %q", name, target)
		}
		t.Target = id
	}
	if gv := field(v, "graph"); gv.Exists() {
		if t.Graph, err = l.parseGraph(gv, path+"/graph", name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func collectStates(machine string, v cue.Value, path string, into map[string]ir.GUID) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		sn, sv := iter.Label(), iter.Value()
		id, err := elementGUID(sv, path+"/"+sn)
		if err != nil {
			return err
		}
		if _, dup := into[sn]; dup {
			return newLoadError(ErrCodeDuplicate, sv.Pos(), "state machine %s: duplicate state %q", machine, sn)
		}
		into[sn] = id
		if err := collectStates(machine, field(sv, "states"), path+"/"+sn+"/states", into); err != nil {
			return err
		}
	}
	return nil
}

// appendTo adds child under a class or a state.
func appendTo(parent script.Element, child script.Element) {
	switch p := parent.(type) {
	case *script.Class:
		script.Append(p, child)
	case *script.State:
		script.Append(p, child)
	}
}
