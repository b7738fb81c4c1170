package ir

import "slices"

// Scratchpad is a flat, index-addressed value store.
//
// Classes use one for default variable values, graphs use one for node
// constants and port values. Objects and graph instances copy the compiled
// scratchpad once and mutate their copy.
type Scratchpad struct {
	values []Value
}

// Add appends v and returns its offset.
func (s *Scratchpad) Add(v Value) int {
	if v == nil {
		v = Null{}
	}
	s.values = append(s.values, v)
	return len(s.values) - 1
}

// Get returns the value at offset, or Null when out of range.
func (s *Scratchpad) Get(offset int) Value {
	if offset < 0 || offset >= len(s.values) {
		return Null{}
	}
	return s.values[offset]
}

// Set overwrites the value at offset. Returns false when out of range.
func (s *Scratchpad) Set(offset int, v Value) bool {
	if offset < 0 || offset >= len(s.values) {
		return false
	}
	if v == nil {
		v = Null{}
	}
	s.values[offset] = v
	return true
}

// Len returns the number of slots.
func (s *Scratchpad) Len() int {
	return len(s.values)
}

// Values returns a copy of the slot values in offset order.
func (s *Scratchpad) Values() []Value {
	return slices.Clone(s.values)
}

// Clone returns an independent copy.
func (s *Scratchpad) Clone() Scratchpad {
	return Scratchpad{values: slices.Clone(s.values)}
}

// Reset overwrites every slot with src's value. Slot count follows src.
func (s *Scratchpad) Reset(src *Scratchpad) {
	s.values = append(s.values[:0], src.values...)
}

// Trim releases spare capacity.
func (s *Scratchpad) Trim() {
	s.values = slices.Clip(s.values)
}
