package script

import (
	"fmt"
	"sort"

	"github.com/roach88/graphscript/internal/ir"
)

// Library holds the loaded script classes, keyed by GUID.
type Library struct {
	classes map[ir.GUID]*Class
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{classes: make(map[ir.GUID]*Class)}
}

// Add registers a class. A class with the same GUID is replaced, which is
// how an edited script reaches the next compile.
func (l *Library) Add(c *Class) {
	l.classes[c.GUID()] = c
}

// Get returns the class or nil.
func (l *Library) Get(guid ir.GUID) *Class {
	return l.classes[guid]
}

// ByName returns the class with the given name.
func (l *Library) ByName(name string) (*Class, error) {
	for _, c := range l.Classes() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("script class %q not found", name)
}

// Classes returns all classes in name order.
func (l *Library) Classes() []*Class {
	out := make([]*Class, 0, len(l.classes))
	for _, c := range l.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].GUID().String() < out[j].GUID().String()
	})
	return out
}

// Len returns the number of classes.
func (l *Library) Len() int { return len(l.classes) }
