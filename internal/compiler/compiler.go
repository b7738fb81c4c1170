package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/graphscript/internal/host"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// Compiler compiles script classes against one host context.
type Compiler struct {
	host   *host.Context
	logger *slog.Logger
	strict bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithStrictDependencies makes dependency validation errors fail the
// compile instead of only being logged.
func WithStrictDependencies(strict bool) Option {
	return func(c *Compiler) { c.strict = strict }
}

// New creates a compiler.
func New(h *host.Context, opts ...Option) *Compiler {
	c := &Compiler{host: h, logger: h.Log()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is a successful compile.
type Result struct {
	Class *ir.RuntimeClass
	// Dependencies lists the dependency validation errors, which were
	// logged but did not block registration.
	Dependencies []*DependencyError
	// Warnings lists the element-level errors whose element was dropped.
	Warnings []*CompileError
}

// CompileClass compiles cls and registers the result.
func (c *Compiler) CompileClass(cls *script.Class) (*Result, error) {
	chain, envBase, err := c.inheritanceChain(cls)
	if err != nil {
		c.logger.Warn("class compile failed", "class", cls.Name(), "error", err)
		return nil, err
	}

	name := cls.Name()
	if cls.File != "" {
		name = QualifyName(cls.File)
	}
	envDesc := c.host.Env.GetClass(envBase)
	rc := ir.NewRuntimeClass(c.host.Classes.Clock().Next(), cls.GUID(), name, envBase, envDesc.DefaultProperties)

	cc := newClassCompiler(c, rc)
	rc.SetComponentInstances(FinalizeComponentInstances(collectComponents(chain), c.host.Env))

	for _, link := range chain {
		if err := cc.compileElements(link); err != nil {
			c.logger.Warn("class compile failed", "class", name, "error", err)
			return nil, err
		}
	}
	cc.resolveTransitions()
	if err := cc.drain(); err != nil {
		c.logger.Warn("class compile failed", "class", name, "error", err)
		return nil, err
	}

	depErrs := ValidateDependencies(rc.ComponentInstances(), c.host.Env)
	for _, de := range depErrs {
		c.logger.Error("critical component dependency error",
			"class", name,
			"instance", de.Instance,
			"code", de.Code,
			"error", de.Message)
	}
	if c.strict && len(depErrs) > 0 {
		return nil, fmt.Errorf("compile %s: %w", name, DependencyErrors(depErrs))
	}

	rc.Finalize()
	c.host.Classes.Register(rc)
	c.logger.Debug("class compiled",
		"class", name,
		"guid", rc.GUID(),
		"timestamp", rc.Timestamp(),
		"graphs", len(rc.Graphs()),
		"components", len(rc.ComponentInstances()))
	return &Result{Class: rc, Dependencies: depErrs, Warnings: cc.warnings}, nil
}

// CompileAll compiles every class of the host's script library in name
// order and returns the successes. Failures are collected, not fatal.
func (c *Compiler) CompileAll() ([]*Result, []error) {
	var results []*Result
	var errs []error
	for _, cls := range c.host.Scripts.Classes() {
		res, err := c.CompileClass(cls)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// inheritanceChain follows Base elements from cls until one names an env
// class. It returns the chain base-first and the env class GUID.
func (c *Compiler) inheritanceChain(cls *script.Class) ([]*script.Class, ir.GUID, error) {
	chain := []*script.Class{cls}
	seen := map[ir.GUID]bool{cls.GUID(): true}
	cur := cls
	for {
		base := findBase(cur)
		if base == nil {
			return nil, ir.NilGUID, &CompileError{Class: cls.Name(), Element: cur.Name(), Code: ErrNoBase, Message: "class has no base"}
		}
		if c.host.Env.GetClass(base.Target) != nil {
			for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
				chain[i], chain[j] = chain[j], chain[i]
			}
			return chain, base.Target, nil
		}
		next := c.host.Scripts.Get(base.Target)
		if next == nil {
			return nil, ir.NilGUID, &CompileError{
				Class: cls.Name(), Element: cur.Name(), Code: ErrNoEnvBase,
				Message: fmt.Sprintf("base %s is neither an env class nor a script class", base.Target),
			}
		}
		if seen[next.GUID()] {
			return nil, ir.NilGUID, &CompileError{
				Class: cls.Name(), Element: next.Name(), Code: ErrCyclicInheritance,
				Message: "inheritance chain loops back on itself",
			}
		}
		seen[next.GUID()] = true
		chain = append(chain, next)
		cur = next
	}
}

func findBase(cls *script.Class) *script.Base {
	for _, child := range cls.Children() {
		if b, ok := child.(*script.Base); ok {
			return b
		}
	}
	return nil
}
