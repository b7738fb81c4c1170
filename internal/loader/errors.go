package loader

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes. E0xx are directory and CUE level, E1xx are schema level.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeInvalidGUID     = "E101" // guid field is not a UUID
	ErrCodeInvalidValue    = "E102" // value of an unsupported shape or type
	ErrCodeUnknownName     = "E103" // unknown env class, component, action or signal
	ErrCodeUnknownNodeType = "E104" // node type not in the node library
	ErrCodeInvalidNode     = "E105" // node configuration did not decode
	ErrCodeInvalidLink     = "E106" // malformed link or unknown link endpoint
	ErrCodeInvalidTimer    = "E107" // timer needs exactly one of seconds or frames
	ErrCodeDuplicate       = "E108" // env descriptor declared twice
	ErrCodeUnknownState    = "E109" // transition target is not a state of its machine
)

// LoadError represents an error that occurred while loading scripts.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newLoadError(code string, pos token.Pos, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Code: ErrCodeInvalidValue, Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Code: ErrCodeInvalidValue, Message: first.Error()}
}
