package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/compiler"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/loader"
	"github.com/roach88/graphscript/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	OutputFile string
	Database   string
	Strict     bool
}

// ClassSummary describes one compiled runtime class.
type ClassSummary struct {
	Name          string `json:"name"`
	GUID          string `json:"guid"`
	File          string `json:"file,omitempty"`
	Fingerprint   string `json:"fingerprint"`
	Variables     int    `json:"variables"`
	Functions     int    `json:"functions"`
	Timers        int    `json:"timers"`
	Components    int    `json:"components"`
	StateMachines int    `json:"state_machines"`
	States        int    `json:"states"`
	Graphs        int    `json:"graphs"`
	// Changed is set when compiling against a database: true when the
	// layout differs from the last recorded compile of the class.
	Changed *bool `json:"changed,omitempty"`
}

// CompilationResult holds the output of a compile.
type CompilationResult struct {
	Classes  []ClassSummary `json:"classes"`
	Warnings []Diagnostic   `json:"warnings,omitempty"`
	Errors   []Diagnostic   `json:"errors,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scripts-dir>",
		Short: "Compile script classes into runtime classes",
		Long: `Compile every script class of a CUE scripts directory.

Each class is compiled against the env declared in the same package. The
summary lists the runtime tables of every class and the warnings of
elements that were dropped.

With --output the layout of every runtime class is written to a file.
With --db every class is recorded in the catalogue and reported as
changed when its layout differs from the previous compile.

Example:
  graphscript compile ./scripts
  graphscript compile ./scripts --output layout.txt
  graphscript compile ./scripts --db ./graphscript.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "write class layouts to file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record compiled classes in SQLite database")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject classes with component dependency errors")

	return cmd
}

func runCompile(opts *CompileOptions, scriptsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st *store.Store
	po := projectOptions{
		mode:   loader.LoadModeCollectAll,
		strict: opts.Strict,
		logger: newLogger(opts.RootOptions, formatter.GetErrWriter()),
	}
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputCompileError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err))
		}
		defer st.Close()
		if po.after, err = st.LatestTimestamp(ctx); err != nil {
			return outputCompileError(formatter, loader.ErrCodeGeneric, err.Error())
		}
	}

	proj, loadErrs := loadProject(scriptsDir, po)
	if loadErrs != nil {
		return outputLoadErrors(formatter, "✗ Compilation failed", loadErrs)
	}
	formatter.VerboseLog("Loaded %d CUE file(s), %d class(es) from %s",
		proj.loaded.FileCount, len(proj.loaded.Classes), scriptsDir)

	result := CompilationResult{
		Classes:  make([]ClassSummary, 0, len(proj.results)),
		Warnings: proj.warnings(),
	}
	if len(proj.failures) > 0 {
		result.Errors = toDiagnostics(proj.failures)
		return outputCompileFailure(formatter, result)
	}

	for _, res := range proj.results {
		summary := summarize(res, proj.host.Scripts.Get(res.Class.GUID()).File)
		if st != nil {
			changed, err := recordClass(ctx, st, res.Class, summary.File)
			if err != nil {
				return outputCompileError(formatter, loader.ErrCodeGeneric, err.Error())
			}
			summary.Changed = &changed
		}
		result.Classes = append(result.Classes, summary)
	}

	if opts.OutputFile != "" {
		if err := writeLayouts(opts.OutputFile, proj.results); err != nil {
			return outputCompileError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("failed to write output: %v", err))
		}
		formatter.VerboseLog("Wrote layouts to %s", opts.OutputFile)
	}

	return outputCompileSuccess(formatter, result)
}

func summarize(res *compiler.Result, file string) ClassSummary {
	rc := res.Class
	return ClassSummary{
		Name:          rc.Name(),
		GUID:          rc.GUID().String(),
		File:          file,
		Fingerprint:   ir.Fingerprint(rc),
		Variables:     len(rc.Variables()),
		Functions:     len(rc.Functions()),
		Timers:        len(rc.Timers()),
		Components:    len(rc.ComponentInstances()),
		StateMachines: len(rc.StateMachines()),
		States:        len(rc.States()),
		Graphs:        len(rc.Graphs()),
	}
}

// recordClass writes rc to the catalogue and reports whether its layout
// changed since the last recorded compile.
func recordClass(ctx context.Context, st *store.Store, rc *ir.RuntimeClass, file string) (bool, error) {
	rec := store.NewClassRecord(rc, file)
	prev, ok, err := st.LatestFingerprint(ctx, rec.GUID)
	if err != nil {
		return false, err
	}
	if err := st.WriteClass(ctx, rec); err != nil {
		return false, err
	}
	return !ok || prev != rec.Fingerprint, nil
}

// writeLayouts writes the layout dump of every class, separated by blank
// lines, in compile order.
func writeLayouts(path string, results []*compiler.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	dumps := make([]string, len(results))
	for i, res := range results {
		dumps[i] = ir.Dump(res.Class)
	}
	return os.WriteFile(path, []byte(strings.Join(dumps, "\n")), 0644)
}

func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d class(es)\n", len(result.Classes))
	for _, c := range result.Classes {
		fmt.Fprintf(w, "  %s  %d variable(s), %d function(s), %d state(s), %d graph(s)  %s",
			c.Name, c.Variables, c.Functions, c.States, c.Graphs, shortHash(c.Fingerprint))
		if c.Changed != nil && *c.Changed {
			fmt.Fprint(w, "  (changed)")
		}
		fmt.Fprintln(w)
	}
	printDiagnostics(formatter, "warning", result.Warnings)
	return nil
}

func outputCompileFailure(formatter *OutputFormatter, result CompilationResult) error {
	first := result.Errors[0]
	message := fmt.Sprintf("compilation failed with %d error(s)", len(result.Errors))
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		printDiagnostics(formatter, "error", result.Errors)
		printDiagnostics(formatter, "warning", result.Warnings)
	}
	return formatter.Fail(result, first.Code, message)
}

func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadErrors reports a scripts directory that did not load.
// Directory level problems are command errors; schema problems in the
// scripts are failures.
func outputLoadErrors(formatter *OutputFormatter, header string, errs []error) error {
	diags := toDiagnostics(errs)
	if len(diags) == 1 && strings.HasPrefix(diags[0].Code, "E00") {
		return outputCompileError(formatter, diags[0].Code, diags[0].Message)
	}
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, header)
		fmt.Fprintln(formatter.Writer)
		printDiagnostics(formatter, "error", diags)
	}
	return formatter.Fail(CompilationResult{Classes: []ClassSummary{}, Errors: diags},
		diags[0].Code, fmt.Sprintf("loading failed with %d error(s)", len(diags)))
}

func printDiagnostics(formatter *OutputFormatter, kind string, diags []Diagnostic) {
	w := formatter.Writer
	for _, d := range diags {
		loc := d.Class
		if d.Element != "" {
			loc += ": " + d.Element
		}
		if d.File != "" {
			loc = fmt.Sprintf("%s:%d", d.File, d.Line)
		}
		if loc == "" {
			fmt.Fprintf(w, "  %s %s: %s\n", kind, d.Code, d.Message)
			continue
		}
		fmt.Fprintf(w, "  %s %s %s: %s\n", kind, d.Code, loc, d.Message)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
