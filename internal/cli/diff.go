package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/store"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Database string
}

// DiffResult is the comparison of two recorded runs.
type DiffResult struct {
	Want        string `json:"want"`
	Got         string `json:"got"`
	WantSignals int    `json:"want_signals"`
	GotSignals  int    `json:"got_signals"`
	Identical   bool   `json:"identical"`
	// DivergedAt is the first seq whose signals differ.
	DivergedAt int64       `json:"diverged_at,omitempty"`
	WantEvent  *TraceEvent `json:"want_event,omitempty"`
	GotEvent   *TraceEvent `json:"got_event,omitempty"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <want-run> <got-run>",
		Short: "Compare the traces of two recorded runs",
		Long: `Compare two recorded runs signal by signal.

Signals match when their hash (type, sender and parameters), frame and
object agree. A run recorded again with the same scripts, inputs and
frame time must produce an identical trace.

Exit codes:
  0 - Traces are identical
  1 - Traces diverge
  2 - Command error (database or run not found, etc.)

Examples:
  graphscript diff --db ./graphscript.db run-a run-b
  graphscript diff --db ./graphscript.db run-a run-b --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runDiff(opts *DiffOptions, want, got string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result := DiffResult{Want: want, Got: got}
	for _, id := range []string{want, got} {
		if _, err := st.ReadRun(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
			}
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
	}

	wantSignals, err := st.ReadSignals(ctx, want)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read signals", err)
	}
	gotSignals, err := st.ReadSignals(ctx, got)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read signals", err)
	}
	result.WantSignals = len(wantSignals)
	result.GotSignals = len(gotSignals)

	d := store.CompareTraces(wantSignals, gotSignals)
	result.Identical = !d.Diverged()
	if d.Diverged() {
		result.DivergedAt = d.Seq
		result.WantEvent = diffEvent(d.Want)
		result.GotEvent = diffEvent(d.Got)
	}

	if opts.Format == "json" {
		if result.Identical {
			return formatter.Success(result)
		}
		return formatter.Fail(result, "E_DIVERGED", fmt.Sprintf("traces diverge at seq %d", result.DivergedAt))
	}
	return outputDiffText(formatter, result)
}

func diffEvent(rec *store.SignalRecord) *TraceEvent {
	if rec == nil {
		return nil
	}
	ev := toTraceEvent(*rec, rec.Signal.String())
	return &ev
}

func outputDiffText(formatter *OutputFormatter, result DiffResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Diff %s (%d signal(s)) against %s (%d signal(s))\n",
		result.Want, result.WantSignals, result.Got, result.GotSignals)

	if result.Identical {
		fmt.Fprintln(w, "✓ Traces identical")
		return nil
	}

	fmt.Fprintf(w, "✗ Traces diverge at seq %d\n", result.DivergedAt)
	printDiffEvent(formatter, "want", result.WantEvent)
	printDiffEvent(formatter, "got", result.GotEvent)
	// Divergence = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("traces diverge at seq %d", result.DivergedAt))
}

func printDiffEvent(formatter *OutputFormatter, label string, ev *TraceEvent) {
	if ev == nil {
		fmt.Fprintf(formatter.Writer, "  %s: <end of trace>\n", label)
		return
	}
	fmt.Fprintf(formatter.Writer, "  %s: frame %d %s %s %v\n", label, ev.Frame, ev.Object, ev.Signal, ev.Params)
}
