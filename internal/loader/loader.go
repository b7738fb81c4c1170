package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/script"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Result contains the env registry and script classes of a directory.
type Result struct {
	Env       *env.Registry
	Classes   []*script.Class
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// NewHost returns a host context over the loaded env with every loaded
// class in its script library.
func (r *Result) NewHost(logger *slog.Logger) *host.Context {
	h := host.New(r.Env, logger)
	for _, c := range r.Classes {
		h.Scripts.Add(c)
	}
	return h
}

// Class returns the loaded class with the given label, or nil.
func (r *Result) Class(name string) *script.Class {
	for _, c := range r.Classes {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// LoadDir loads the CUE package in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDir(dir string, mode LoadMode) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scripts directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scripts directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	// Conflicts below the root only surface on validation.
	if err := value.Validate(); err != nil {
		le := formatCUEError(err).(*LoadError)
		le.Code = ErrCodeBuildFailed
		return nil, []error{le}
	}

	res, errs := LoadValue(value, mode)
	res.FileCount = len(cueFiles)
	return res, errs
}

// LoadValue builds the env registry and classes from an already built
// CUE value.
func LoadValue(value cue.Value, mode LoadMode) (*Result, []error) {
	l := &loader{mode: mode, env: env.NewRegistry()}
	res := &Result{Env: l.env, CUEValue: value}

	l.parseEnv(field(value, "env"))
	if l.stopped() {
		return res, l.errs
	}
	res.Classes = l.parseClasses(field(value, "class"))

	if len(res.Classes) == 0 && len(l.errs) == 0 {
		l.errs = append(l.errs, &LoadError{Code: ErrCodeGeneric, Message: "no classes found in scripts"})
	}
	return res, l.errs
}

// FindCUEFiles returns the .cue files directly inside dir in sorted order.
// Subdirectories are separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

type loader struct {
	mode LoadMode
	env  *env.Registry
	errs []error
	// classes maps script class labels to their GUIDs for base lookup.
	classes map[string]*script.Class
}

func (l *loader) fail(err error) {
	l.errs = append(l.errs, err)
}

func (l *loader) stopped() bool {
	return l.mode == LoadModeFailFast && len(l.errs) > 0
}

// eachField calls fn for every regular field of the struct v. Errors are
// recorded and iteration continues unless the loader fails fast.
func (l *loader) eachField(v cue.Value, fn func(name string, fv cue.Value) error) {
	if !v.Exists() || l.stopped() {
		return
	}
	iter, err := v.Fields()
	if err != nil {
		l.fail(formatCUEError(err))
		return
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			l.fail(err)
			if l.stopped() {
				return
			}
		}
	}
}
