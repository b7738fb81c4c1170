// Package host holds the process-wide services the compiler and the object
// runtime share. A Context is built once at startup and passed explicitly.
package host

import (
	"log/slog"

	"github.com/roach88/graphscript/internal/classes"
	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/schedule"
	"github.com/roach88/graphscript/internal/script"
)

// Context bundles the registries and schedulers of one simulation.
type Context struct {
	Env     *env.Registry
	Scripts *script.Library
	Classes *classes.Registry
	Timers  *schedule.TimerSystem
	Updates *schedule.UpdateScheduler
	Logger  *slog.Logger
}

// New creates a context with fresh registries. A nil envReg or logger is
// replaced with an empty registry or slog.Default().
func New(envReg *env.Registry, logger *slog.Logger) *Context {
	if envReg == nil {
		envReg = env.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Env:     envReg,
		Scripts: script.NewLibrary(),
		Classes: classes.NewRegistry(),
		Timers:  schedule.NewTimerSystem(logger),
		Updates: schedule.NewUpdateScheduler(logger),
		Logger:  logger,
	}
}

// Log returns the context logger, never nil.
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
