package loader

import (
	"cuelang.org/go/cue"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
)

// parseEnv registers the descriptors of the env section into l.env.
func (l *loader) parseEnv(v cue.Value) {
	if !v.Exists() {
		return
	}
	l.eachField(field(v, "classes"), func(name string, cv cue.Value) error {
		guid, err := elementGUID(cv, "env/class/"+name)
		if err != nil {
			return err
		}
		props, err := toProperties(field(cv, "default_properties"))
		if err != nil {
			return err
		}
		return l.register(cv, l.env.RegisterClass(env.ClassDesc{GUID: guid, Name: name, DefaultProperties: props}))
	})

	// Interactions name other components, so every GUID is known first.
	components := map[string]ir.GUID{}
	l.eachField(field(v, "components"), func(name string, cv cue.Value) error {
		guid, err := elementGUID(cv, "env/component/"+name)
		if err != nil {
			return err
		}
		components[name] = guid
		return nil
	})
	l.eachField(field(v, "components"), func(name string, cv cue.Value) error {
		singleton, err := optBool(cv, "singleton")
		if err != nil {
			return err
		}
		props, err := toProperties(field(cv, "default_properties"))
		if err != nil {
			return err
		}
		desc := env.ComponentDesc{GUID: components[name], Name: name, Singleton: singleton, DefaultProperties: props}
		for _, dep := range []struct {
			field string
			kind  env.InteractionKind
		}{{"hard", env.HardDependency}, {"soft", env.SoftDependency}} {
			list := field(cv, dep.field)
			names, err := stringList(list)
			if err != nil {
				return err
			}
			for _, other := range names {
				guid, ok := components[other]
				if !ok {
					return newLoadError(ErrCodeUnknownName, list.Pos(), "component %s: %s dependency on unknown component %q", name, dep.field, other)
				}
				desc.Interactions = append(desc.Interactions, env.Interaction{Kind: dep.kind, Component: guid})
			}
		}
		return l.register(cv, l.env.RegisterComponent(desc))
	})

	l.eachField(field(v, "actions"), func(name string, av cue.Value) error {
		guid, err := elementGUID(av, "env/action/"+name)
		if err != nil {
			return err
		}
		return l.register(av, l.env.RegisterAction(env.ActionDesc{GUID: guid, Name: name}))
	})

	l.eachField(field(v, "types"), func(name string, tv cue.Value) error {
		guid, err := elementGUID(tv, "env/type/"+name)
		if err != nil {
			return err
		}
		kindName, ok, err := optString(tv, "kind")
		if err != nil {
			return err
		}
		if !ok {
			return newLoadError(ErrCodeInvalidValue, tv.Pos(), "type %s: kind is required", name)
		}
		kind, err := ir.ParseValueKind(kindName)
		if err != nil {
			return newLoadError(ErrCodeInvalidValue, field(tv, "kind").Pos(), "type %s: %v", name, err)
		}
		def := ir.ZeroValue(kind)
		if dv := field(tv, "default"); dv.Exists() {
			raw, err := toValue(dv)
			if err != nil {
				return err
			}
			if def, err = ir.Coerce(raw, kind); err != nil {
				return newLoadError(ErrCodeInvalidValue, dv.Pos(), "type %s: default: %v", name, err)
			}
		}
		return l.register(tv, l.env.RegisterDataType(env.DataTypeDesc{GUID: guid, Name: name, Kind: kind, Default: def}))
	})

	l.eachField(field(v, "signals"), func(name string, sv cue.Value) error {
		guid, err := elementGUID(sv, "env/signal/"+name)
		if err != nil {
			return err
		}
		list := field(sv, "params")
		kinds, err := stringList(list)
		if err != nil {
			return err
		}
		desc := env.SignalDesc{GUID: guid, Name: name}
		for _, k := range kinds {
			kind, err := ir.ParseValueKind(k)
			if err != nil {
				return newLoadError(ErrCodeInvalidValue, list.Pos(), "signal %s: %v", name, err)
			}
			desc.Params = append(desc.Params, kind)
		}
		return l.register(sv, l.env.RegisterSignal(desc))
	})
}

func (l *loader) register(v cue.Value, err error) error {
	if err != nil {
		return newLoadError(ErrCodeDuplicate, v.Pos(), "%v", err)
	}
	return nil
}
