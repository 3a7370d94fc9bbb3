package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLabel is reported when a Goto or If targets a label the program does not define.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrRunaway is reported when an instance executes more instructions in one tick
	// than the manager allows.
	ErrRunaway = errors.New("instruction limit per tick exceeded")

	// ErrHandlerPanic wraps a panic recovered from a command handler or condition evaluator.
	ErrHandlerPanic = errors.New("command handler panicked")

	// ErrNoCondition is reported when an If is reached and no condition evaluator is configured.
	ErrNoCondition = errors.New("no condition evaluator configured")

	// ErrCancelled is recorded on instances cancelled from outside.
	ErrCancelled = errors.New("script cancelled")
)

// ScriptError is a fatal error of one script instance with its source location.
type ScriptError struct {
	// File is the program's file name.
	File string

	// Line is the 1-indexed source line of the failing instruction.
	Line int

	// Literal is the source text of the failing instruction.
	Literal string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Literal != "" {
		return fmt.Sprintf("%s:%d: %v (%s)", e.File, e.Line, e.Err, e.Literal)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
