// Package classes is the runtime catalogue of compiled classes.
package classes

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/graphscript/internal/ir"
)

// Listener is notified after a class is registered.
type Listener func(rc *ir.RuntimeClass)

// Registry holds the current RuntimeClass for each class GUID.
//
// Each GUID has one handle whose pointer is swapped on recompile. Objects
// load the pointer once when they initialize and keep using that class
// until they re-enter a simulation mode, so replacing or releasing a class
// never invalidates a live object. The old class is collected once no
// object references it.
type Registry struct {
	mu        sync.Mutex
	handles   map[ir.GUID]*atomic.Pointer[ir.RuntimeClass]
	listeners map[int]Listener
	nextID    int
	clock     *Clock
}

// NewRegistry creates an empty registry with its own clock.
func NewRegistry() *Registry {
	return &Registry{
		handles:   make(map[ir.GUID]*atomic.Pointer[ir.RuntimeClass]),
		listeners: make(map[int]Listener),
		clock:     NewClock(),
	}
}

// Clock returns the timestamp source compiles must use.
func (r *Registry) Clock() *Clock { return r.clock }

// Get returns the current class for guid or nil.
func (r *Registry) Get(guid ir.GUID) *ir.RuntimeClass {
	r.mu.Lock()
	h := r.handles[guid]
	r.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Load()
}

// Register installs rc as the current class for its GUID and notifies
// listeners. rc must be finalized.
func (r *Registry) Register(rc *ir.RuntimeClass) {
	if !rc.Finalized() {
		panic("classes: Register called with an unfinalized class")
	}
	r.mu.Lock()
	h := r.handles[rc.GUID()]
	if h == nil {
		h = &atomic.Pointer[ir.RuntimeClass]{}
		r.handles[rc.GUID()] = h
	}
	h.Store(rc)
	listeners := r.snapshotListeners()
	r.mu.Unlock()

	for _, l := range listeners {
		l(rc)
	}
}

// Release drops the current class for guid. Objects still holding it are
// unaffected. Returns false if nothing was registered.
func (r *Registry) Release(guid ir.GUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.handles[guid]
	if h == nil {
		return false
	}
	return h.Swap(nil) != nil
}

// GUIDs returns the GUIDs that currently have a class.
func (r *Registry) GUIDs() []ir.GUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.GUID, 0, len(r.handles))
	for id, h := range r.handles {
		if h.Load() != nil {
			out = append(out, id)
		}
	}
	return out
}

// OnClassCompiled subscribes l and returns a function that unsubscribes it.
// Listeners run in subscription order.
func (r *Registry) OnClassCompiled(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Registry) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(r.listeners))
	for id := 0; id < r.nextID; id++ {
		if l, ok := r.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
