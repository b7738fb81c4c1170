package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
)

// Structural compile error codes (E200-E249)
const (
	// Inheritance (E200-E209)
	ErrNoBase            = "E200" // class has no Base element
	ErrNoEnvBase         = "E201" // inheritance chain never reaches an env class
	ErrCyclicInheritance = "E202" // a script class derives from itself

	// Elements (E210-E219)
	ErrMissingState      = "E210" // state-scoped element outside a registered state
	ErrUnknownDataType   = "E211" // variable type not in the env registry
	ErrInvalidDefault    = "E212" // variable default does not fit its type
	ErrUnknownTransition = "E213" // transition target state not found

	// Graphs (E220-E239)
	ErrUnresolvedNode    = "E220" // link endpoint names an unknown node
	ErrUnresolvedPort    = "E221" // link endpoint names an unknown port
	ErrPortMismatch      = "E222" // link connects incompatible port kinds
	ErrNodeCompile       = "E223" // node Compile callback failed
	ErrUnboundCallback   = "E224" // node did not bind an execution callback
	ErrUnlinkedInput     = "E225" // data input without link or default
	ErrDuplicateExecLink = "E226" // execution output linked twice
)

// Dependency error codes (E250-E259)
const (
	ErrDependencyUnresolved   = "E250" // hard dependency has no instance of its type
	ErrDependencyNotSingleton = "E251" // hard dependency type is not a singleton
	ErrDependencyAmbiguous    = "E252" // hard dependency type has several instances
	ErrDependencyCycle        = "E253" // component dependencies form a cycle
	ErrDependencyOrder        = "E254" // a dependency is constructed after its dependent
)

// CompileError is a structural error that aborts compilation of a class or
// graph, or (for element-level codes) drops one element with a warning.
type CompileError struct {
	Class   string `json:"class"`
	Element string `json:"element,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CompileError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Class, e.Element, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Class, e.Message)
}

// DependencyError reports a component dependency problem found by
// ValidateDependencies.
type DependencyError struct {
	Code       string  `json:"code"`
	Instance   string  `json:"instance"`
	Dependency ir.GUID `json:"dependency"`
	Message    string  `json:"message"`
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Instance, e.Message)
}

// IsCompileError reports whether err is or wraps a CompileError with the
// given code. An empty code matches any CompileError.
func IsCompileError(err error, code string) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return code == "" || ce.Code == code
	}
	return false
}

// IsDependencyError reports whether err is or wraps a DependencyError.
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// DependencyErrors is returned when strict dependency validation rejects a class.
type DependencyErrors []*DependencyError

func (d DependencyErrors) Error() string {
	if len(d) == 1 {
		return d[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", d[0].Error(), len(d)-1)
}

// Unwrap exposes the individual errors to errors.As.
func (d DependencyErrors) Unwrap() []error {
	out := make([]error, len(d))
	for i, e := range d {
		out[i] = e
	}
	return out
}
