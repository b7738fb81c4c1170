package env

import "github.com/roach88/graphscript/internal/ir"

// InteractionKind describes how one component relates to another type.
type InteractionKind int

const (
	// HardDependency requires exactly one instance of the other type,
	// constructed first. The other type must be a singleton.
	HardDependency InteractionKind = iota + 1
	// SoftDependency orders after every instance of the other type, if any.
	SoftDependency
)

func (k InteractionKind) String() string {
	switch k {
	case HardDependency:
		return "hard"
	case SoftDependency:
		return "soft"
	default:
		return "unknown"
	}
}

// Interaction is one declared relationship on a component descriptor.
type Interaction struct {
	Kind      InteractionKind
	Component ir.GUID
}

// Component is the native object behind a component instance.
//
// The runtime calls ApplyProperties after the component is attached to its
// entity and Init only once every component of the object is attached, so
// Init may look at siblings.
type Component interface {
	ApplyProperties(props ir.Properties) error
	Init() error
	Shutdown()
}

// Action is the native object behind an action instance.
type Action interface {
	Start() error
	Stop()
}

// ClassDesc describes a native class a script class can derive from.
type ClassDesc struct {
	GUID              ir.GUID
	Name              string
	DefaultProperties ir.Properties
}

// ComponentDesc describes a native component type.
type ComponentDesc struct {
	GUID              ir.GUID
	Name              string
	Singleton         bool
	Interactions      []Interaction
	DefaultProperties ir.Properties
	// Factory creates the native component. Nil uses PropertyComponent.
	Factory func() Component
}

// New creates a component from the descriptor.
func (d *ComponentDesc) New() Component {
	if d.Factory != nil {
		return d.Factory()
	}
	return &PropertyComponent{}
}

// ActionDesc describes a native action type.
type ActionDesc struct {
	GUID ir.GUID
	Name string
	// Factory creates the native action. Nil uses FlagAction.
	Factory func() Action
}

// New creates an action from the descriptor.
func (d *ActionDesc) New() Action {
	if d.Factory != nil {
		return d.Factory()
	}
	return &FlagAction{}
}

// DataTypeDesc describes a variable type.
type DataTypeDesc struct {
	GUID    ir.GUID
	Name    string
	Kind    ir.ValueKind
	Default ir.Value
}

// SignalDesc describes a signal type and its parameter kinds.
type SignalDesc struct {
	GUID   ir.GUID
	Name   string
	Params []ir.ValueKind
}
