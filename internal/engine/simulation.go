package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/schedule"
)

// DefaultFrameTime is the frame length Run uses unless configured.
const DefaultFrameTime = 16 * time.Millisecond

// Simulation drives the shared timers and update scheduler one frame at a
// time.
type Simulation struct {
	host      *host.Context
	logger    *slog.Logger
	frameTime time.Duration
	runIDs    RunIDGenerator
	runID     string
	frames    uint64
	stepping  bool
}

// SimulationOption configures a Simulation.
type SimulationOption func(*Simulation)

// WithFrameTime sets the frame length Run advances by.
func WithFrameTime(d time.Duration) SimulationOption {
	return func(s *Simulation) {
		if d > 0 {
			s.frameTime = d
		}
	}
}

// WithRunIDGenerator sets how run ids are generated.
func WithRunIDGenerator(g RunIDGenerator) SimulationOption {
	return func(s *Simulation) { s.runIDs = g }
}

// NewSimulation creates a simulation over h and assigns it a run id.
func NewSimulation(h *host.Context, opts ...SimulationOption) *Simulation {
	s := &Simulation{
		host:      h,
		logger:    h.Log(),
		frameTime: DefaultFrameTime,
		runIDs:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runID = s.runIDs.Generate()
	return s
}

// RunID identifies this simulation in traces.
func (s *Simulation) RunID() string { return s.runID }

// Frames returns the number of completed frames.
func (s *Simulation) Frames() uint64 { return s.frames }

// CurrentFrame returns the 1-based number of the frame being stepped, or
// the number of completed frames between steps.
func (s *Simulation) CurrentFrame() uint64 {
	if s.stepping {
		return s.frames + 1
	}
	return s.frames
}

// FrameTime returns the frame length Run advances by.
func (s *Simulation) FrameTime() time.Duration { return s.frameTime }

// Step advances one frame of length dt. Timers expire first, then update
// callbacks run in two priority windows: early (PriorityEarly and above)
// and the rest.
func (s *Simulation) Step(dt time.Duration) {
	s.stepping = true
	defer func() { s.stepping = false }()
	expired := s.host.Timers.Update(dt)
	s.host.Updates.BeginFrame(dt)
	early := s.host.Updates.Update(schedule.PriorityMax, schedule.PriorityEarly)
	rest := s.host.Updates.Update(schedule.PriorityEarly-1, schedule.PriorityMin)
	s.host.Updates.EndFrame()
	s.frames++
	s.logger.Debug("frame",
		"run", s.runID,
		"frame", s.frames,
		"timers_expired", expired,
		"updates", early+rest)
}

// Run steps frames frames of FrameTime each. It stops early when ctx is
// cancelled and returns ctx.Err().
func (s *Simulation) Run(ctx context.Context, frames int) error {
	s.logger.Info("simulation starting", "run", s.runID, "frames", frames, "frame_time", s.frameTime)
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation cancelled", "run", s.runID, "frames", s.frames)
			return ctx.Err()
		default:
		}
		s.Step(s.frameTime)
	}
	s.logger.Info("simulation finished", "run", s.runID, "frames", s.frames)
	return nil
}
