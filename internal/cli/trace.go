package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/engine"
	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/loader"
	"github.com/roach88/graphscript/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Signal   string // optional - filter to one signal name or GUID
	Scripts  string // optional - scripts directory used to name signals
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID             string `json:"id"`
	Class          string `json:"class"`
	ClassGUID      string `json:"class_guid"`
	FrameTime      string `json:"frame_time"`
	Frames         uint64 `json:"frames"`
	RuntimeVersion string `json:"runtime_version"`
}

// TraceEvent is one recorded signal in the timeline.
type TraceEvent struct {
	Seq    int64    `json:"seq"`
	Frame  uint64   `json:"frame"`
	Object string   `json:"object"`
	Signal string   `json:"signal"`
	Sender string   `json:"sender,omitempty"`
	Params []string `json:"params"`
	Hash   string   `json:"hash"`
}

// TraceResult holds the timeline of one run.
type TraceResult struct {
	Run      RunSummary     `json:"run"`
	Timeline []TraceEvent   `json:"timeline"`
	Counts   map[string]int `json:"counts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `List the runs recorded in a database, or show the signal timeline
of one run.

Signals are shown by GUID unless --scripts points at the scripts directory
of the run, in which case env signal and timer names are used.

Examples:
  graphscript trace --db ./graphscript.db
  graphscript trace --db ./graphscript.db --run 0192c3e4-...
  graphscript trace --db ./graphscript.db --run 0192c3e4-... --scripts ./scripts --signal Hit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show; lists runs when empty")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "show only this signal")
	cmd.Flags().StringVar(&opts.Scripts, "scripts", "", "scripts directory used to name signals")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	records, err := st.ReadSignals(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read signals", err)
	}

	names, err := traceNames(opts, run, formatter)
	if err != nil {
		return err
	}

	result := TraceResult{
		Run:      summarizeRun(run),
		Timeline: []TraceEvent{},
		Counts:   map[string]int{},
	}
	for _, rec := range records {
		name := names.Name(rec.Signal)
		if opts.Signal != "" && opts.Signal != name && opts.Signal != rec.Signal.String() {
			continue
		}
		result.Timeline = append(result.Timeline, toTraceEvent(rec, name))
		result.Counts[name]++
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// traceNames builds the signal namer for run. Without a scripts directory
// only GUIDs are available.
func traceNames(opts *TraceOptions, run store.RunRecord, formatter *OutputFormatter) (*engine.SignalNames, error) {
	if opts.Scripts == "" {
		return engine.NewSignalNames(env.NewRegistry(), nil), nil
	}
	proj, loadErrs := loadProject(opts.Scripts, projectOptions{
		mode:   loader.LoadModeFailFast,
		logger: newLogger(opts.RootOptions, formatter.GetErrWriter()),
	})
	if loadErrs != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scripts", errors.Join(loadErrs...))
	}
	rc := proj.host.Classes.Get(run.ClassGUID)
	if rc == nil {
		formatter.VerboseLog("class %s not compiled from %s; timers are unnamed", run.ClassName, opts.Scripts)
	}
	return engine.NewSignalNames(proj.host.Env, rc), nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarizeRun(r)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "%d run(s)\n", len(summaries))
	for _, r := range summaries {
		fmt.Fprintf(w, "  %s  %s  %d frame(s) of %s\n", r.ID, r.Class, r.Frames, r.FrameTime)
	}
	return nil
}

func summarizeRun(r store.RunRecord) RunSummary {
	return RunSummary{
		ID:             r.ID,
		Class:          r.ClassName,
		ClassGUID:      r.ClassGUID.String(),
		FrameTime:      r.FrameTime.String(),
		Frames:         r.Frames,
		RuntimeVersion: r.RuntimeVersion,
	}
}

func toTraceEvent(rec store.SignalRecord, name string) TraceEvent {
	ev := TraceEvent{
		Seq:    rec.Seq,
		Frame:  rec.Frame,
		Object: rec.ObjectID,
		Signal: name,
		Params: make([]string, len(rec.Params)),
		Hash:   rec.Hash,
	}
	if rec.Sender != ir.NilGUID {
		ev.Sender = rec.Sender.String()
	}
	for i, p := range rec.Params {
		ev.Params[i] = ir.Format(p)
	}
	return ev
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s, %d frame(s))\n", result.Run.ID, result.Run.Class, result.Run.Frames)
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  no signals")
		return nil
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] frame %d %s %s", ev.Seq, ev.Frame, ev.Object, ev.Signal)
		if len(ev.Params) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(ev.Params, ", "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
