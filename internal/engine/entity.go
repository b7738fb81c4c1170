package engine

import (
	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
)

// Entity is the host-side object native components attach to.
type Entity interface {
	// Attach adds c to the entity. parent is nil for root instances.
	Attach(ci *ir.ComponentInstance, parent, c env.Component) error
	// Detach removes c. Detaching an unknown component is a no-op.
	Detach(c env.Component)
}

// EntityFactory creates the entity for a new object.
type EntityFactory func(id ObjectID, rc *ir.RuntimeClass) Entity

// AttachedComponent is one attachment recorded by BasicEntity.
type AttachedComponent struct {
	Name      string
	Parent    env.Component
	Component env.Component
}

// BasicEntity records attachments in order. It is the default entity.
type BasicEntity struct {
	attached []AttachedComponent
}

// NewBasicEntity is an EntityFactory producing BasicEntity values.
func NewBasicEntity(ObjectID, *ir.RuntimeClass) Entity { return &BasicEntity{} }

func (e *BasicEntity) Attach(ci *ir.ComponentInstance, parent, c env.Component) error {
	e.attached = append(e.attached, AttachedComponent{Name: ci.Name, Parent: parent, Component: c})
	return nil
}

func (e *BasicEntity) Detach(c env.Component) {
	for i, a := range e.attached {
		if a.Component == c {
			e.attached = append(e.attached[:i], e.attached[i+1:]...)
			return
		}
	}
}

// Attached returns the current attachments in attach order.
func (e *BasicEntity) Attached() []AttachedComponent { return e.attached }
