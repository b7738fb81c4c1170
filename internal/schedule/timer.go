package schedule

import (
	"log/slog"
	"time"

	"golang.org/x/exp/slices"

	"github.com/roach88/graphscript/internal/ir"
)

// TimerID identifies a timer. Zero is never a valid id.
type TimerID uint32

// TimerCallback is invoked on expiry.
type TimerCallback func(id TimerID)

type timer struct {
	params   ir.TimerParams
	callback TimerCallback
	active   bool
	pending  bool // expired this frame, callback not yet run
	elapsed  time.Duration
	frames   int
}

// TimerSystem owns timers and advances them once per frame.
//
// Timers are created stopped. Expiry callbacks fire in timer id order after
// all timers of the frame were advanced. A callback that starts, stops or
// destroys a timer whose own callback has not run yet cancels that expiry,
// so a stopped timer never fires, not even on the frame it expired.
type TimerSystem struct {
	nextID TimerID
	timers map[TimerID]*timer
	logger *slog.Logger
}

// NewTimerSystem creates an empty timer system.
func NewTimerSystem(logger *slog.Logger) *TimerSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerSystem{timers: make(map[TimerID]*timer), logger: logger}
}

// CreateTimer registers a stopped timer.
func (ts *TimerSystem) CreateTimer(params ir.TimerParams, cb TimerCallback) TimerID {
	ts.nextID++
	ts.timers[ts.nextID] = &timer{params: params, callback: cb}
	return ts.nextID
}

// DestroyTimer releases a timer. Returns false for unknown ids.
func (ts *TimerSystem) DestroyTimer(id TimerID) bool {
	t, ok := ts.timers[id]
	if !ok {
		return false
	}
	t.pending = false
	delete(ts.timers, id)
	return true
}

// StartTimer (re)starts a timer from zero.
func (ts *TimerSystem) StartTimer(id TimerID) bool {
	t, ok := ts.timers[id]
	if !ok {
		return false
	}
	t.active = true
	t.pending = false
	t.elapsed = 0
	t.frames = 0
	return true
}

// StopTimer stops a timer. Stopping a stopped timer succeeds.
func (ts *TimerSystem) StopTimer(id TimerID) bool {
	t, ok := ts.timers[id]
	if !ok {
		return false
	}
	t.active = false
	t.pending = false
	return true
}

// IsActive reports whether the timer exists and runs.
func (ts *TimerSystem) IsActive(id TimerID) bool {
	t, ok := ts.timers[id]
	return ok && t.active
}

// Len returns the number of timers, running or not.
func (ts *TimerSystem) Len() int { return len(ts.timers) }

// Update advances every running timer by dt (or one frame) and fires the
// callbacks of the timers that expired. Returns the number fired.
func (ts *TimerSystem) Update(dt time.Duration) int {
	var expired []TimerID
	for id, t := range ts.timers {
		if !t.active {
			continue
		}
		if ts.advance(t, dt) {
			t.pending = true
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)

	fired := 0
	for _, id := range expired {
		t, ok := ts.timers[id]
		if !ok || !t.pending {
			// Destroyed, stopped or restarted by an earlier callback
			continue
		}
		t.pending = false
		if t.callback != nil {
			t.callback(id)
		}
		fired++
	}
	return fired
}

func (ts *TimerSystem) advance(t *timer, dt time.Duration) bool {
	var due bool
	switch t.params.Unit {
	case ir.TimerFrames:
		t.frames++
		due = t.frames >= t.params.Frames
		if due {
			t.frames = 0
		}
	default:
		t.elapsed += dt
		due = t.elapsed >= t.params.Duration
		if due {
			if t.params.Duration > 0 {
				t.elapsed %= t.params.Duration
			} else {
				t.elapsed = 0
			}
		}
	}
	if due && !t.params.Repeat {
		t.active = false
	}
	return due
}
