package ir

import (
	"slices"

	"github.com/google/uuid"
)

// Signal is a typed message dispatched to an object.
//
// Type selects receivers and transitions. Sender is compared against a
// receiver's sender filter; receivers with a nil sender filter match any sender.
type Signal struct {
	Type   GUID
	Sender GUID
	Params []Value
}

// NewSignal creates a signal of the given type with optional parameters.
func NewSignal(typeGUID GUID, params ...Value) Signal {
	return Signal{Type: typeGUID, Params: params}
}

// Clone returns a copy with a private parameter slice, so a queued signal
// is not affected when the raiser reuses its buffer.
func (s Signal) Clone() Signal {
	s.Params = slices.Clone(s.Params)
	return s
}

// Param returns parameter i or Null.
func (s Signal) Param(i int) Value {
	if i < 0 || i >= len(s.Params) {
		return Null{}
	}
	return s.Params[i]
}

// Matches reports whether a receiver filter (type, sender) accepts s.
func (s Signal) Matches(typeGUID, sender GUID) bool {
	if s.Type != typeGUID {
		return false
	}
	return sender == uuid.Nil || sender == s.Sender
}
