package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/loader"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool
}

// ValidationResult is the outcome of validate.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Classes  int          `json:"classes"`
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scripts-dir>",
		Short: "Check scripts without writing output",
		Long: `Load and compile a scripts directory and report every problem.

Unlike compile, validate stops at the first load error and writes
nothing. Warnings do not fail validation unless --strict is set.

Example:
  graphscript validate ./scripts
  graphscript validate ./scripts --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings and dependency errors as failures")

	return cmd
}

func runValidate(opts *ValidateOptions, scriptsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	proj, loadErrs := loadProject(scriptsDir, projectOptions{
		mode:   loader.LoadModeFailFast,
		strict: opts.Strict,
		logger: newLogger(opts.RootOptions, formatter.GetErrWriter()),
	})
	if loadErrs != nil {
		return outputLoadErrors(formatter, "✗ Validation failed", loadErrs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", proj.loaded.FileCount, scriptsDir)

	result := ValidationResult{
		Classes:  len(proj.loaded.Classes),
		Errors:   toDiagnostics(proj.failures),
		Warnings: proj.warnings(),
	}
	if opts.Strict {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All scripts valid (%d class(es))\n", result.Classes)
	printDiagnostics(formatter, "warning", result.Warnings)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		printDiagnostics(formatter, "error", result.Errors)
		printDiagnostics(formatter, "warning", result.Warnings)
	}
	// Validation failures = exit code 1
	return formatter.Fail(result, result.Errors[0].Code,
		fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
