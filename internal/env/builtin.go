package env

import (
	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/ir"
)

// Built-in signal GUIDs.
var (
	SignalStart  = uuid.MustParse("a1a5ef1c-0491-4f6a-9d6e-5d3f8a0c0001")
	SignalStop   = uuid.MustParse("a1a5ef1c-0491-4f6a-9d6e-5d3f8a0c0002")
	SignalUpdate = uuid.MustParse("a1a5ef1c-0491-4f6a-9d6e-5d3f8a0c0003")
)

// Built-in data type GUIDs, one per value kind.
var (
	TypeBool   = uuid.MustParse("b2c6f02d-15a2-4a7b-8e7f-6e4f9b1d0001")
	TypeInt    = uuid.MustParse("b2c6f02d-15a2-4a7b-8e7f-6e4f9b1d0002")
	TypeFloat  = uuid.MustParse("b2c6f02d-15a2-4a7b-8e7f-6e4f9b1d0003")
	TypeString = uuid.MustParse("b2c6f02d-15a2-4a7b-8e7f-6e4f9b1d0004")
	TypeGUID   = uuid.MustParse("b2c6f02d-15a2-4a7b-8e7f-6e4f9b1d0005")
)

func registerBuiltins(r *Registry) {
	r.signals[SignalStart] = &SignalDesc{GUID: SignalStart, Name: "Start"}
	r.signals[SignalStop] = &SignalDesc{GUID: SignalStop, Name: "Stop"}
	// Update carries the frame time in seconds.
	r.signals[SignalUpdate] = &SignalDesc{GUID: SignalUpdate, Name: "Update", Params: []ir.ValueKind{ir.KindFloat}}

	for _, dt := range []DataTypeDesc{
		{GUID: TypeBool, Name: "bool", Kind: ir.KindBool, Default: ir.Bool(false)},
		{GUID: TypeInt, Name: "int", Kind: ir.KindInt, Default: ir.Int(0)},
		{GUID: TypeFloat, Name: "float", Kind: ir.KindFloat, Default: ir.Float(0)},
		{GUID: TypeString, Name: "string", Kind: ir.KindString, Default: ir.String("")},
		{GUID: TypeGUID, Name: "guid", Kind: ir.KindGUID, Default: ir.GUIDValue(ir.NilGUID)},
	} {
		r.dataTypes[dt.GUID] = &dt
	}
}

// PropertyComponent is the default native component. It keeps the last
// applied properties and counts lifecycle calls.
type PropertyComponent struct {
	Properties ir.Properties
	Inits      int
	Shutdowns  int
}

func (c *PropertyComponent) ApplyProperties(props ir.Properties) error {
	c.Properties = props.Clone()
	return nil
}

func (c *PropertyComponent) Init() error {
	c.Inits++
	return nil
}

func (c *PropertyComponent) Shutdown() { c.Shutdowns++ }

// FlagAction is the default native action. It only tracks whether it runs.
type FlagAction struct {
	Running bool
	Starts  int
}

func (a *FlagAction) Start() error {
	a.Running = true
	a.Starts++
	return nil
}

func (a *FlagAction) Stop() { a.Running = false }
