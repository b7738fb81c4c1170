package schedule

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/exp/slices"
)

// Frequency is the stride, in frames, between two updates of a callback.
type Frequency int

const (
	EveryFrame    Frequency = 1
	Every2Frames  Frequency = 2
	Every4Frames  Frequency = 4
	Every8Frames  Frequency = 8
	Every16Frames Frequency = 16
	Every32Frames Frequency = 32
)

var frequencies = []Frequency{EveryFrame, Every2Frames, Every4Frames, Every8Frames, Every16Frames, Every32Frames}

func (f Frequency) valid() bool { return slices.Contains(frequencies, f) }

// Priority bands the simulation runs as separate update windows, highest first.
const (
	PriorityEarly   = 200
	PriorityDefault = 100
	PriorityLate    = 0
)

// Window bounds for Update.
const (
	PriorityMax = math.MaxInt
	PriorityMin = math.MinInt
)

// UpdateContext is passed to update callbacks.
type UpdateContext struct {
	Frame     uint64
	FrameTime time.Duration
}

// Scope identifies one connection. The zero Scope is never connected.
type Scope struct {
	id uint64
}

// Connected reports whether the scope has an active connection.
func (s *Scope) Connected() bool { return s != nil && s.id != 0 }

// UpdateParams describes a connection.
type UpdateParams struct {
	Scope     *Scope
	Frequency Frequency
	Priority  int
	Callback  func(UpdateContext)
}

type updateEntry struct {
	id        uint64
	frequency Frequency
	bucket    int
	priority  int
	callback  func(UpdateContext)
	removed   bool
}

type frameEntry struct {
	entry *updateEntry
	done  bool
}

// UpdateScheduler dispatches connected callbacks once per frame at their
// frequency, in descending priority.
//
// A callback with frequency N lives in one of N buckets and runs on frames
// whose number is congruent to its bucket. New connections join the
// least-populated bucket of their frequency so work spreads across frames.
type UpdateScheduler struct {
	nextID  uint64
	entries map[uint64]*updateEntry
	// buckets[f][b] counts entries of frequency f assigned to bucket b.
	buckets map[Frequency][]int

	frame     uint64
	frameTime time.Duration
	current   []frameEntry
	logger    *slog.Logger
}

// NewUpdateScheduler creates an empty scheduler.
func NewUpdateScheduler(logger *slog.Logger) *UpdateScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &UpdateScheduler{
		entries: make(map[uint64]*updateEntry),
		buckets: make(map[Frequency][]int, len(frequencies)),
		logger:  logger,
	}
	for _, f := range frequencies {
		s.buckets[f] = make([]int, int(f))
	}
	return s
}

// Connect registers a callback. It fails if the scope is already
// connected, the callback is nil or the frequency is unsupported.
func (s *UpdateScheduler) Connect(p UpdateParams) error {
	switch {
	case p.Scope == nil:
		return fmt.Errorf("connect: nil scope")
	case p.Scope.Connected():
		return fmt.Errorf("connect: scope already connected")
	case p.Callback == nil:
		return fmt.Errorf("connect: nil callback")
	case !p.Frequency.valid():
		return fmt.Errorf("connect: unsupported frequency %d", p.Frequency)
	}

	counts := s.buckets[p.Frequency]
	bucket := 0
	for i, n := range counts {
		if n < counts[bucket] {
			bucket = i
		}
	}
	counts[bucket]++

	s.nextID++
	e := &updateEntry{
		id:        s.nextID,
		frequency: p.Frequency,
		bucket:    bucket,
		priority:  p.Priority,
		callback:  p.Callback,
	}
	s.entries[e.id] = e
	p.Scope.id = e.id
	return nil
}

// Disconnect removes the scope's connection. Safe to call from inside a
// callback; the removed callback does not run again. Returns false if the
// scope was not connected.
func (s *UpdateScheduler) Disconnect(scope *Scope) bool {
	if !scope.Connected() {
		return false
	}
	e, ok := s.entries[scope.id]
	scope.id = 0
	if !ok {
		return false
	}
	e.removed = true
	s.buckets[e.frequency][e.bucket]--
	delete(s.entries, e.id)
	return true
}

// Len returns the number of connections.
func (s *UpdateScheduler) Len() int { return len(s.entries) }

// Frame returns the number of the current frame.
func (s *UpdateScheduler) Frame() uint64 { return s.frame }

// BeginFrame starts a new frame: it selects the callbacks due this frame
// and orders them by priority, highest first, keeping connection order
// among equal priorities. The order is fixed for the rest of the frame.
func (s *UpdateScheduler) BeginFrame(frameTime time.Duration) {
	s.frame++
	s.frameTime = frameTime
	s.current = s.current[:0]
	for _, e := range s.entries {
		if s.frame%uint64(e.frequency) == uint64(e.bucket) {
			s.current = append(s.current, frameEntry{entry: e})
		}
	}
	slices.SortStableFunc(s.current, func(a, b frameEntry) int {
		if a.entry.priority != b.entry.priority {
			if a.entry.priority > b.entry.priority {
				return -1
			}
			return 1
		}
		if a.entry.id < b.entry.id {
			return -1
		}
		return 1
	})
}

// Update runs the due callbacks whose priority lies in [low, high] and
// that have not run this frame. It returns the number of callbacks run.
func (s *UpdateScheduler) Update(high, low int) int {
	ctx := UpdateContext{Frame: s.frame, FrameTime: s.frameTime}
	ran := 0
	for i := range s.current {
		fe := &s.current[i]
		p := fe.entry.priority
		if p < low {
			break
		}
		if fe.done || p > high || fe.entry.removed {
			continue
		}
		fe.done = true
		fe.entry.callback(ctx)
		ran++
	}
	return ran
}

// EndFrame logs callbacks that were due but never ran in a window.
func (s *UpdateScheduler) EndFrame() {
	skipped := 0
	for _, fe := range s.current {
		if !fe.done && !fe.entry.removed {
			skipped++
		}
	}
	if skipped > 0 {
		s.logger.Debug("update callbacks outside every window", "frame", s.frame, "skipped", skipped)
	}
	s.current = s.current[:0]
}
