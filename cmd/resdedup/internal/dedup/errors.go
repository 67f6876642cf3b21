package dedup

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every failure of a run matches exactly one of these via
// errors.Is; the CLI maps them to exit codes.
var (
	ErrMissingInput       = errors.New("missing input")
	ErrIO                 = errors.New("i/o failure")
	ErrInvariantViolation = errors.New("invariant violation")
)

// MissingInputError reports absent version directories or artifacts. All
// problems found during validation are collected so the operator can fix
// them in one pass.
type MissingInputError struct {
	Problems []string
}

// NewMissingInputError returns a MissingInputError for the given problems.
func NewMissingInputError(problems ...string) *MissingInputError {
	return &MissingInputError{Problems: problems}
}

func (e *MissingInputError) Error() string {
	return "missing input: " + strings.Join(e.Problems, "; ")
}

// Is reports whether target is ErrMissingInput.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// IOError wraps a failure to read an input or write the output store.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError returns an IOError for op on path.
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("i/o failure: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// InvariantViolationError reports a logically impossible state. It always
// indicates a bug in fingerprinting or naming, or inputs that changed while
// the run was in progress.
type InvariantViolationError struct {
	Detail string
}

// Invariantf formats an InvariantViolationError.
func Invariantf(format string, args ...any) *InvariantViolationError {
	return &InvariantViolationError{Detail: fmt.Sprintf(format, args...)}
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Detail
}

// Is reports whether target is ErrInvariantViolation.
func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}
