package env

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphscript/internal/ir"
)

// Registry holds native descriptors keyed by GUID.
//
// It is populated once at startup and read afterwards; it is not safe for
// concurrent registration.
type Registry struct {
	classes    map[ir.GUID]*ClassDesc
	components map[ir.GUID]*ComponentDesc
	actions    map[ir.GUID]*ActionDesc
	dataTypes  map[ir.GUID]*DataTypeDesc
	signals    map[ir.GUID]*SignalDesc
}

// NewRegistry returns a registry holding only the built-in signals and data types.
func NewRegistry() *Registry {
	r := &Registry{
		classes:    make(map[ir.GUID]*ClassDesc),
		components: make(map[ir.GUID]*ComponentDesc),
		actions:    make(map[ir.GUID]*ActionDesc),
		dataTypes:  make(map[ir.GUID]*DataTypeDesc),
		signals:    make(map[ir.GUID]*SignalDesc),
	}
	registerBuiltins(r)
	return r
}

func (r *Registry) RegisterClass(d ClassDesc) error {
	if _, ok := r.classes[d.GUID]; ok {
		return fmt.Errorf("env class %s (%s) already registered", d.Name, d.GUID)
	}
	r.classes[d.GUID] = &d
	return nil
}

func (r *Registry) RegisterComponent(d ComponentDesc) error {
	if _, ok := r.components[d.GUID]; ok {
		return fmt.Errorf("env component %s (%s) already registered", d.Name, d.GUID)
	}
	r.components[d.GUID] = &d
	return nil
}

func (r *Registry) RegisterAction(d ActionDesc) error {
	if _, ok := r.actions[d.GUID]; ok {
		return fmt.Errorf("env action %s (%s) already registered", d.Name, d.GUID)
	}
	r.actions[d.GUID] = &d
	return nil
}

func (r *Registry) RegisterDataType(d DataTypeDesc) error {
	if _, ok := r.dataTypes[d.GUID]; ok {
		return fmt.Errorf("env data type %s (%s) already registered", d.Name, d.GUID)
	}
	if d.Default == nil {
		d.Default = ir.ZeroValue(d.Kind)
	}
	r.dataTypes[d.GUID] = &d
	return nil
}

func (r *Registry) RegisterSignal(d SignalDesc) error {
	if _, ok := r.signals[d.GUID]; ok {
		return fmt.Errorf("env signal %s (%s) already registered", d.Name, d.GUID)
	}
	r.signals[d.GUID] = &d
	return nil
}

// GetClass returns the class descriptor or nil.
func (r *Registry) GetClass(guid ir.GUID) *ClassDesc { return r.classes[guid] }

// GetComponent returns the component descriptor or nil.
func (r *Registry) GetComponent(guid ir.GUID) *ComponentDesc { return r.components[guid] }

// GetAction returns the action descriptor or nil.
func (r *Registry) GetAction(guid ir.GUID) *ActionDesc { return r.actions[guid] }

// GetDataType returns the data type descriptor or nil.
func (r *Registry) GetDataType(guid ir.GUID) *DataTypeDesc { return r.dataTypes[guid] }

// GetSignal returns the signal descriptor or nil.
func (r *Registry) GetSignal(guid ir.GUID) *SignalDesc { return r.signals[guid] }

// Name lookups serve the loader, which lets authors refer to descriptors by name.

func (r *Registry) ClassByName(name string) *ClassDesc {
	return findByName(r.classes, name, func(d *ClassDesc) string { return d.Name })
}

func (r *Registry) ComponentByName(name string) *ComponentDesc {
	return findByName(r.components, name, func(d *ComponentDesc) string { return d.Name })
}

func (r *Registry) ActionByName(name string) *ActionDesc {
	return findByName(r.actions, name, func(d *ActionDesc) string { return d.Name })
}

func (r *Registry) DataTypeByName(name string) *DataTypeDesc {
	return findByName(r.dataTypes, name, func(d *DataTypeDesc) string { return d.Name })
}

func (r *Registry) SignalByName(name string) *SignalDesc {
	return findByName(r.signals, name, func(d *SignalDesc) string { return d.Name })
}

// ComponentNames lists registered component names in sorted order.
func (r *Registry) ComponentNames() []string {
	names := make([]string, 0, len(r.components))
	for _, d := range r.components {
		names = append(names, d.Name)
	}
	slices.Sort(names)
	return names
}

func findByName[D any](m map[ir.GUID]*D, name string, nameOf func(*D) string) *D {
	// Maps iterate randomly; pick the smallest GUID on duplicate names so the
	// result is stable.
	var found *D
	var foundID ir.GUID
	for id, d := range m {
		if nameOf(d) != name {
			continue
		}
		if found == nil || strings.Compare(id.String(), foundID.String()) < 0 {
			found, foundID = d, id
		}
	}
	return found
}
