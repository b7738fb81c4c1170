package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/graph"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
)

// Pool sizing.
const (
	DefaultMinSlots = 100
	// MaxSlots is the slot table ceiling. Slot index 0xFFFF is never used,
	// which keeps InvalidObjectID unreachable.
	MaxSlots = 0xFFFF
)

type slot struct {
	id     ObjectID
	salt   Salt
	object *Object
}

// ObjectPool allocates objects into a growable slot table and hands out
// salted ids.
//
// A slot's salt advances on every destroy, so an id presented after its
// object was destroyed never matches the slot again, even once the slot is
// reused. Every lookup re-derives the slot from the id and compares the
// full id before touching the object.
type ObjectPool struct {
	host     *host.Context
	logger   *slog.Logger
	slots    []slot
	free     []SlotIndex
	live     int
	growths  int
	minSlots int

	maxSteps      int
	observer      SignalObserver
	entityFactory EntityFactory
	unsubscribe   func()
}

// PoolOption configures an ObjectPool.
type PoolOption func(*ObjectPool)

// WithMinSlots sets the initial slot count and the smallest growth step.
func WithMinSlots(n int) PoolOption {
	return func(p *ObjectPool) {
		if n > 0 {
			p.minSlots = min(n, MaxSlots)
		}
	}
}

// WithSignalObserver installs an observer on every object the pool creates.
func WithSignalObserver(obs SignalObserver) PoolOption {
	return func(p *ObjectPool) { p.observer = obs }
}

// WithEntityFactory sets how entities for new objects are created.
func WithEntityFactory(f EntityFactory) PoolOption {
	return func(p *ObjectPool) { p.entityFactory = f }
}

// WithMaxGraphSteps sets the step quota of every graph execution.
func WithMaxGraphSteps(n int) PoolOption {
	return func(p *ObjectPool) { p.maxSteps = n }
}

// NewObjectPool creates a pool with its minimum slot count allocated and
// subscribes it to class-compiled notifications for hot reload.
func NewObjectPool(h *host.Context, opts ...PoolOption) *ObjectPool {
	p := &ObjectPool{
		host:          h,
		logger:        h.Log(),
		minSlots:      DefaultMinSlots,
		maxSteps:      graph.DefaultMaxSteps,
		entityFactory: NewBasicEntity,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.resize(p.minSlots)
	p.unsubscribe = h.Classes.OnClassCompiled(p.reload)
	return p
}

// Close destroys every object and stops listening for recompiles.
func (p *ObjectPool) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	for i := range p.slots {
		if o := p.slots[i].object; o != nil {
			p.DestroyObject(o.ID())
		}
	}
}

// Capacity returns the slot count.
func (p *ObjectPool) Capacity() int { return len(p.slots) }

// Len returns the number of live objects.
func (p *ObjectPool) Len() int { return p.live }

// Growths returns how often the slot table grew beyond the WithMinSlots
// table allocated by NewObjectPool. The preallocation itself is not counted.
func (p *ObjectPool) Growths() int { return p.growths }

// resize extends the table to n slots and pushes the new slots on the free
// list so the lowest index is handed out first.
func (p *ObjectPool) resize(n int) {
	old := len(p.slots)
	for i := old; i < n; i++ {
		p.slots = append(p.slots, slot{id: InvalidObjectID})
	}
	for i := n - 1; i >= old; i-- {
		p.free = append(p.free, SlotIndex(i))
	}
}

func (p *ObjectPool) grow() bool {
	n := max(len(p.slots)*2, p.minSlots)
	if n > MaxSlots {
		n = MaxSlots
	}
	if n <= len(p.slots) {
		return false
	}
	p.logger.Debug("object pool grows", "from", len(p.slots), "to", n)
	p.resize(n)
	p.growths++
	return true
}

// CreateObject creates and initializes an object of the compiled class
// classGUID. The object starts Idle. overrides are applied to public
// variables whenever it enters a simulation mode.
func (p *ObjectPool) CreateObject(classGUID ir.GUID, overrides ir.Properties) (*Object, error) {
	if p.host.Classes.Get(classGUID) == nil {
		return nil, newRuntimeError(ErrCodeUnknownClass, InvalidObjectID, "no compiled class %s", classGUID)
	}
	if len(p.free) == 0 && !p.grow() {
		return nil, newRuntimeError(ErrCodePoolExhausted, InvalidObjectID, "all %d slots in use", len(p.slots))
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	s := &p.slots[idx]
	id := MakeObjectID(idx, s.salt)

	rc := p.host.Classes.Get(classGUID)
	o := newObject(p.host, objectConfig{
		id:        id,
		guid:      uuid.NewSHA1(classGUID, []byte(id.String())),
		classGUID: classGUID,
		entity:    p.entityFactory(id, rc),
		logger:    p.logger,
		maxSteps:  p.maxSteps,
		observer:  p.observer,
		overrides: overrides,
	})
	if err := o.Init(); err != nil {
		p.free = append(p.free, idx)
		p.logger.Warn("object init failed", "class", rc.Name(), "error", err)
		return nil, err
	}
	s.id = id
	s.object = o
	p.live++
	return o, nil
}

func (p *ObjectPool) lookup(id ObjectID) *slot {
	idx := int(id.Slot())
	if idx >= len(p.slots) {
		return nil
	}
	s := &p.slots[idx]
	if s.object == nil || s.id != id {
		return nil
	}
	return s
}

// GetObject returns the object with id, or nil for stale or unknown ids.
func (p *ObjectPool) GetObject(id ObjectID) *Object {
	if s := p.lookup(id); s != nil {
		return s.object
	}
	return nil
}

// DestroyObject destroys the object and advances the slot's salt.
func (p *ObjectPool) DestroyObject(id ObjectID) bool {
	s := p.lookup(id)
	if s == nil {
		return false
	}
	s.object.Destroy()
	s.object = nil
	s.id = InvalidObjectID
	s.salt = s.salt.next()
	p.free = append(p.free, id.Slot())
	p.live--
	return true
}

// SendSignal dispatches sig to one object.
func (p *ObjectPool) SendSignal(id ObjectID, sig ir.Signal) bool {
	s := p.lookup(id)
	if s == nil {
		return false
	}
	s.object.ProcessSignal(sig)
	return true
}

// BroadcastSignal dispatches sig to every live object in slot order and
// returns how many received it.
func (p *ObjectPool) BroadcastSignal(sig ir.Signal) int {
	n := 0
	for _, o := range p.Objects() {
		// A handler may have destroyed a later object.
		if p.GetObject(o.ID()) == o {
			o.ProcessSignal(sig)
			n++
		}
	}
	return n
}

// Objects returns the live objects in slot order.
func (p *ObjectPool) Objects() []*Object {
	out := make([]*Object, 0, p.live)
	for i := range p.slots {
		if o := p.slots[i].object; o != nil {
			out = append(out, o)
		}
	}
	return out
}

// SetSimulationMode switches every live object and returns the errors of
// the objects that failed.
func (p *ObjectPool) SetSimulationMode(mode SimulationMode) []error {
	var errs []error
	for _, o := range p.Objects() {
		if err := o.SetSimulationMode(mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// reload re-enters the current mode of every live object of rc's class so
// it hot swaps to rc.
func (p *ObjectPool) reload(rc *ir.RuntimeClass) {
	for _, o := range p.Objects() {
		if o.ClassGUID() != rc.GUID() || o.Mode() == ModeIdle {
			continue
		}
		if err := o.SetSimulationMode(o.Mode()); err != nil {
			p.logger.Warn("hot reload failed", "object", o.ID().String(), "class", rc.Name(), "error", err)
		}
	}
}
