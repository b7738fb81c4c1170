package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/graphscript/internal/compiler"
	"github.com/roach88/graphscript/internal/engine"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/loader"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes engine and compiler logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Harness is the state of one scenario run.
type Harness struct {
	host      *host.Context
	pool      *engine.ObjectPool
	sim       *engine.Simulation
	tracer    *engine.Tracer
	class     *ir.RuntimeClass
	object    *engine.Object
	names     *engine.SignalNames
	frameTime time.Duration
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh host. Execution flow:
// 1. Load the scripts directory and compile every class
// 2. Create one object of the scenario class with its overrides
// 3. Execute the steps in order
// 4. Record the trace and final state, then evaluate assertions
//
// An error means the scenario could not run; failed assertions are
// reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := setup(scenario, cfg.logger)
	if err != nil {
		return nil, err
	}
	defer h.pool.Close()

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	h.collect(result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func setup(scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	loaded, errs := loader.LoadDir(scenario.Scripts, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load scripts: %w", errors.Join(errs...))
	}
	src := loaded.Class(scenario.Class)
	if src == nil {
		return nil, fmt.Errorf("class %q not found in %s", scenario.Class, scenario.Scripts)
	}

	hc := loaded.NewHost(logger)
	if _, errs := compiler.New(hc, compiler.WithLogger(logger)).CompileAll(); len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile scripts: %w", errors.Join(errs...))
	}
	rc := hc.Classes.Get(src.GUID())
	if rc == nil {
		return nil, fmt.Errorf("class %q did not compile", scenario.Class)
	}

	frameTime := engine.DefaultFrameTime
	if scenario.FrameTime != "" {
		d, err := time.ParseDuration(scenario.FrameTime)
		if err != nil {
			return nil, fmt.Errorf("frame_time: %w", err)
		}
		frameTime = d
	}

	overrides := ir.Properties{}
	for name, raw := range scenario.Overrides {
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}
		overrides[name] = v
	}

	h := &Harness{
		host:      hc,
		class:     rc,
		names:     engine.NewSignalNames(hc.Env, rc),
		frameTime: frameTime,
		logger:    logger,
	}
	h.sim = engine.NewSimulation(hc,
		engine.WithFrameTime(frameTime),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("scenario-"+scenario.Name)))
	h.tracer = engine.NewTracer(h.sim.CurrentFrame)
	h.pool = engine.NewObjectPool(hc, engine.WithSignalObserver(h.tracer.Observe))

	obj, err := h.pool.CreateObject(rc.GUID(), overrides)
	if err != nil {
		h.pool.Close()
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	h.object = obj
	return h, nil
}

// executeSteps runs the steps in order. Unknown modes and signals abort
// the run; a failed call is recorded as an error in result.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		params, err := convertParams(step.Params)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		switch {
		case step.Mode != "":
			mode, err := engine.ParseSimulationMode(step.Mode)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			if err := h.object.SetSimulationMode(mode); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		case step.Signal != "":
			guid, err := h.names.Resolve(step.Signal)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			h.pool.SendSignal(h.object.ID(), ir.NewSignal(guid, params...))
		case step.Frames > 0:
			for range step.Frames {
				h.sim.Step(h.frameTime)
			}
		case step.Call != "":
			if !h.object.CallFunction(step.Call, params...) {
				result.AddError(fmt.Sprintf("step %d: call %s failed", i, step.Call))
			}
		}

		h.logger.Info("step completed",
			"step", i,
			"frames", h.sim.Frames(),
			"trace", h.tracer.Len(),
		)
	}
	return nil
}

// collect copies the trace and the final object state into result.
func (h *Harness) collect(result *Result) {
	for _, e := range h.tracer.Entries() {
		params := e.Signal.Params
		if params == nil {
			params = []ir.Value{}
		}
		result.Trace = append(result.Trace, TraceEvent{
			Seq:    e.Seq,
			Frame:  e.Frame,
			Object: e.Object.String(),
			Signal: h.names.Name(e.Signal.Type),
			Params: params,
		})
	}
	for _, v := range h.class.Variables() {
		if val, ok := h.object.VariableByName(v.Name); ok {
			result.Variables[v.Name] = val
		}
	}
	for m, sm := range h.class.StateMachines() {
		result.States[sm.Name] = h.object.CurrentStateName(m)
	}
}

func convertParams(raw []any) ([]ir.Value, error) {
	out := make([]ir.Value, 0, len(raw))
	for i, r := range raw {
		v, err := ir.FromAny(r)
		if err != nil {
			return nil, fmt.Errorf("params[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
