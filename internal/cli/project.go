package cli

import (
	"errors"
	"log/slog"

	"github.com/roach88/graphscript/internal/compiler"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/loader"
)

// Diagnostic is one load, compile or dependency problem.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Class   string `json:"class,omitempty"`
	Element string `json:"element,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// project is a scripts directory loaded into a fresh host and compiled.
type project struct {
	dir     string
	loaded  *loader.Result
	host    *host.Context
	results []*compiler.Result
	// failures holds one entry per class that did not compile.
	failures []error
}

// projectOptions tune loadProject.
type projectOptions struct {
	mode   loader.LoadMode
	strict bool
	logger *slog.Logger
	// after is the newest class timestamp already recorded; compiles are
	// stamped after it.
	after int64
}

// loadProject loads dir and compiles every class in it.
//
// A non-empty error slice means the directory did not load and the project
// is nil. Compile failures do not stop the other classes; they are kept in
// project.failures.
func loadProject(dir string, po projectOptions) (*project, []error) {
	loaded, errs := loader.LoadDir(dir, po.mode)
	if len(errs) > 0 {
		return nil, errs
	}
	hc := loaded.NewHost(po.logger)
	hc.Classes.Clock().AdvanceTo(po.after)
	c := compiler.New(hc,
		compiler.WithLogger(po.logger),
		compiler.WithStrictDependencies(po.strict))
	results, failures := c.CompileAll()
	return &project{
		dir:      dir,
		loaded:   loaded,
		host:     hc,
		results:  results,
		failures: failures,
	}, nil
}

// warnings flattens the element warnings and dependency errors of every
// successful compile.
func (p *project) warnings() []Diagnostic {
	var out []Diagnostic
	for _, r := range p.results {
		for _, w := range r.Warnings {
			out = append(out, toDiagnostic(w))
		}
		for _, de := range r.Dependencies {
			d := toDiagnostic(de)
			d.Class = r.Class.Name()
			out = append(out, d)
		}
	}
	return out
}

// toDiagnostic maps the error types of the loader and compiler packages.
// A DependencyErrors value maps to its first entry.
func toDiagnostic(err error) Diagnostic {
	var le *loader.LoadError
	if errors.As(err, &le) {
		d := Diagnostic{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			d.File = le.Pos.Filename()
			d.Line = le.Pos.Line()
		}
		return d
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return Diagnostic{Code: ce.Code, Message: ce.Message, Class: ce.Class, Element: ce.Element}
	}
	var de *compiler.DependencyError
	if errors.As(err, &de) {
		return Diagnostic{Code: de.Code, Message: de.Message, Element: de.Instance}
	}
	return Diagnostic{Code: loader.ErrCodeGeneric, Message: err.Error()}
}

func toDiagnostics(errs []error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, err := range errs {
		out[i] = toDiagnostic(err)
	}
	return out
}
