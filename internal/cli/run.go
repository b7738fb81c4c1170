package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/engine"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/loader"
	"github.com/roach88/graphscript/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Class     string
	Frames    int
	FrameTime time.Duration
	Objects   int
	Signals   []string
	Overrides []string
	Database  string
	RunID     string // fixed run id; a UUIDv7 is generated when empty
}

// ObjectState is the final state of one simulated object.
type ObjectState struct {
	ID        string            `json:"id"`
	States    map[string]string `json:"states"`
	Variables map[string]string `json:"variables"`
}

// RunResult is the outcome of a simulation run.
type RunResult struct {
	RunID     string        `json:"run_id"`
	Class     string        `json:"class"`
	Frames    uint64        `json:"frames"`
	Signals   int           `json:"signals"`
	Recorded  bool          `json:"recorded"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Objects   []ObjectState `json:"objects"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scripts-dir>",
		Short: "Simulate objects of a compiled class",
		Long: `Compile a scripts directory, create objects of one class and run
them in game mode for a number of frames.

Signals given with --signal are broadcast once all objects have entered
game mode, before the first frame. A signal is a name with optional JSON
parameters: Hit or Hit:[1]. Overrides set public variables: hits=5.

With --db the run and every dispatched signal are recorded so the trace
can be inspected with trace and compared with diff.

Example:
  graphscript run ./scripts --class Door --frames 120
  graphscript run ./scripts --class Door --signal 'Hit:[1]' --set hits=5
  graphscript run ./scripts --class Door --db ./graphscript.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Class, "class", "", "script class to instantiate (required)")
	_ = cmd.MarkFlagRequired("class")
	cmd.Flags().IntVar(&opts.Frames, "frames", 60, "number of frames to simulate")
	cmd.Flags().DurationVar(&opts.FrameTime, "frame-time", engine.DefaultFrameTime, "length of one frame")
	cmd.Flags().IntVar(&opts.Objects, "objects", 1, "number of objects to create")
	cmd.Flags().StringArrayVar(&opts.Signals, "signal", nil, "signal to broadcast before the first frame (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Overrides, "set", nil, "public variable override name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "use a fixed run id")

	return cmd
}

func runSimulation(opts *RunOptions, scriptsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	if opts.Frames < 0 {
		return NewExitError(ExitCommandError, "frames must be non-negative")
	}
	if opts.Objects < 1 {
		return NewExitError(ExitCommandError, "objects must be at least 1")
	}
	overrides, err := parseOverrides(opts.Overrides)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid override", err)
	}

	proj, loadErrs := loadProject(scriptsDir, projectOptions{mode: loader.LoadModeFailFast, logger: logger})
	if loadErrs != nil {
		return outputLoadErrors(formatter, "✗ Run failed", loadErrs)
	}
	if len(proj.failures) > 0 {
		return outputCompileFailure(formatter, CompilationResult{
			Classes: []ClassSummary{},
			Errors:  toDiagnostics(proj.failures),
		})
	}
	src := proj.loaded.Class(opts.Class)
	if src == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("class %q not found in %s", opts.Class, scriptsDir))
	}
	rc := proj.host.Classes.Get(src.GUID())
	names := engine.NewSignalNames(proj.host.Env, rc)

	signals := make([]ir.Signal, 0, len(opts.Signals))
	for _, s := range opts.Signals {
		sig, err := parseSignal(names, s)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid signal", err)
		}
		signals = append(signals, sig)
	}

	var runIDs engine.RunIDGenerator = engine.UUIDv7Generator{}
	if opts.RunID != "" {
		runIDs = engine.NewFixedGenerator(opts.RunID)
	}
	sim := engine.NewSimulation(proj.host,
		engine.WithFrameTime(opts.FrameTime),
		engine.WithRunIDGenerator(runIDs))
	tracer := engine.NewTracer(sim.CurrentFrame)
	pool := engine.NewObjectPool(proj.host,
		engine.WithMinSlots(opts.Objects),
		engine.WithSignalObserver(tracer.Observe))
	defer pool.Close()

	for range opts.Objects {
		if _, err := pool.CreateObject(rc.GUID(), overrides); err != nil {
			return WrapExitError(ExitFailure, "failed to create object", err)
		}
	}
	if errs := pool.SetSimulationMode(engine.ModeGame); len(errs) > 0 {
		return WrapExitError(ExitFailure, "failed to enter game mode", errors.Join(errs...))
	}
	for _, sig := range signals {
		pool.BroadcastSignal(sig)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	runErr := sim.Run(ctx, opts.Frames)
	cancelled := errors.Is(runErr, context.Canceled)
	if runErr != nil && !cancelled {
		return WrapExitError(ExitFailure, "simulation error", runErr)
	}

	result := RunResult{
		RunID:     sim.RunID(),
		Class:     rc.Name(),
		Frames:    sim.Frames(),
		Signals:   tracer.Len(),
		Cancelled: cancelled,
		Objects:   snapshotObjects(pool),
	}

	if opts.Database != "" {
		if err := recordRun(context.Background(), opts.Database, sim, rc, tracer); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.Recorded = true
	}

	return outputRunResult(formatter, result)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping simulation", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// recordRun stores the run and its trace. Trace seqs start at 1.
func recordRun(ctx context.Context, path string, sim *engine.Simulation, rc *ir.RuntimeClass, tracer *engine.Tracer) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.WriteRun(ctx, store.RunRecord{
		ID:             sim.RunID(),
		ClassGUID:      rc.GUID(),
		ClassName:      rc.Name(),
		FrameTime:      sim.FrameTime(),
		RuntimeVersion: ir.RuntimeVersion,
	}); err != nil {
		return err
	}

	recs := make([]store.SignalRecord, 0, tracer.Len())
	for _, e := range tracer.Entries() {
		rec, err := store.NewSignalRecord(sim.RunID(), e.Seq+1, e.Frame, e.Object.String(), e.Signal)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	if err := st.WriteSignals(ctx, recs); err != nil {
		return err
	}
	return st.FinishRun(ctx, sim.RunID(), sim.Frames())
}

func snapshotObjects(pool *engine.ObjectPool) []ObjectState {
	objs := pool.Objects()
	out := make([]ObjectState, 0, len(objs))
	for _, o := range objs {
		rc := o.Class()
		state := ObjectState{
			ID:        o.ID().String(),
			States:    map[string]string{},
			Variables: map[string]string{},
		}
		for m, sm := range rc.StateMachines() {
			state.States[sm.Name] = o.CurrentStateName(m)
		}
		for _, v := range rc.Variables() {
			if val, ok := o.VariableByName(v.Name); ok {
				state.Variables[v.Name] = ir.Format(val)
			}
		}
		out = append(out, state)
	}
	return out
}

// parseSignal parses Name or Name:[params], the params a JSON array.
func parseSignal(names *engine.SignalNames, s string) (ir.Signal, error) {
	name, raw, hasParams := strings.Cut(s, ":")
	guid, err := names.Resolve(name)
	if err != nil {
		return ir.Signal{}, err
	}
	if !hasParams {
		return ir.NewSignal(guid), nil
	}
	var list []any
	if err := decodeJSONValue(raw, &list); err != nil {
		return ir.Signal{}, fmt.Errorf("signal %s params: %w", name, err)
	}
	params := make([]ir.Value, len(list))
	for i, p := range list {
		if params[i], err = ir.FromAny(p); err != nil {
			return ir.Signal{}, fmt.Errorf("signal %s params[%d]: %w", name, i, err)
		}
	}
	return ir.NewSignal(guid, params...), nil
}

// parseOverrides parses name=value pairs, the value JSON.
func parseOverrides(pairs []string) (ir.Properties, error) {
	props := ir.Properties{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("override %q: expected name=value", pair)
		}
		var v any
		if err := decodeJSONValue(raw, &v); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		val, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		props[name] = val
	}
	return props, nil
}

// decodeJSONValue decodes with UseNumber so integers stay integers.
func decodeJSONValue(raw string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	return dec.Decode(dst)
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return writeJSON(formatter.Writer, CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	w := formatter.Writer
	status := "completed"
	if result.Cancelled {
		status = "cancelled"
	}
	fmt.Fprintf(w, "✓ Run %s %s: %d frame(s), %d signal(s)\n", result.RunID, status, result.Frames, result.Signals)
	for _, o := range result.Objects {
		fmt.Fprintf(w, "  object %s", o.ID)
		for _, k := range sortedKeys(o.States) {
			fmt.Fprintf(w, "  %s=%s", k, o.States[k])
		}
		for _, k := range sortedKeys(o.Variables) {
			fmt.Fprintf(w, "  %s=%s", k, o.Variables[k])
		}
		fmt.Fprintln(w)
	}
	if result.Recorded {
		fmt.Fprintln(w, "  recorded")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
