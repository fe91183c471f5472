package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes. All of them are recoverable;
// only ErrEngineLost is reported upward to the application.
var (
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyRecording = fmt.Errorf("%w: already recording", ErrInvalidState)
	ErrNotRecording     = fmt.Errorf("%w: not recording", ErrInvalidState)
	ErrOutOfRange       = errors.New("value out of range")
	ErrClockSkew        = errors.New("clock skew: negative offset clamped to zero")
	ErrNotFound         = errors.New("not found")
	ErrCorruptData      = errors.New("corrupt data")
	ErrEncode           = errors.New("encode error")
	ErrEngineLost       = errors.New("synthesis engine connection lost")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidNote      = errors.New("invalid note")
)

// EngineError represents a failed command to the synthesis engine
type EngineError struct {
	Op    string // "attack", "release", "param"
	Path  string // note name or parameter path
	Cause error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("engine %s %s failed", e.Op, e.Path)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is makes every EngineError match ErrEngineLost
func (e *EngineError) Is(target error) bool {
	return target == ErrEngineLost
}

// NewEngineError creates an EngineError
func NewEngineError(op, path string, cause error) *EngineError {
	return &EngineError{Op: op, Path: path, Cause: cause}
}

// ParamError describes a parameter that is unknown or outside its domain
type ParamError struct {
	Stage string
	Name  string
	Value float64
	Err   error // ErrUnknownParameter or ErrOutOfRange
}

func (e *ParamError) Error() string {
	if errors.Is(e.Err, ErrUnknownParameter) {
		return fmt.Sprintf("%v: %s.%s", e.Err, e.Stage, e.Name)
	}
	return fmt.Sprintf("%v: %s.%s = %g", e.Err, e.Stage, e.Name, e.Value)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// Is and As re-export the standard helpers so callers need one import
var (
	Is = errors.Is
	As = errors.As
)
