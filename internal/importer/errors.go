// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Error kinds surfaced by import operations

package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/locks"
	"github.com/sony-level/wsimport/internal/security"
	"github.com/sony-level/wsimport/internal/workspace"
)

// Kind classifies a failure for transports and callers
type Kind int

const (
	KindUnknown Kind = iota
	InvalidInput
	Conflict
	NotFound
	Timeout
	ExecutionFailure
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrExecutionFailure = errors.New("execution failure")
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Timeout:
		return "timeout"
	case ExecutionFailure:
		return "execution_failure"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case InvalidInput:
		return ErrInvalidInput
	case Conflict:
		return ErrConflict
	case NotFound:
		return ErrNotFound
	case Timeout:
		return ErrTimeout
	case ExecutionFailure:
		return ErrExecutionFailure
	}
	return nil
}

// Error is returned by every Engine operation
type Error struct {
	Kind   Kind
	Op     string // clone, upload, list, ...
	Detail string // human-readable, includes captured stderr verbatim
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf classifies any error produced by the engine or its collaborators
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	switch {
	case errors.Is(err, security.ErrInvalidInput):
		return InvalidInput
	case errors.Is(err, locks.ErrBusy):
		return Conflict
	case errors.Is(err, exec.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, exec.ErrContainerNotFound), errors.Is(err, workspace.ErrUnknownAssessment):
		return NotFound
	case errors.Is(err, workspace.ErrNoWorkspace):
		return InvalidInput
	}
	return ExecutionFailure
}

// Detail returns the human-readable part of an engine error
func Detail(err error) string {
	var ie *Error
	if errors.As(err, &ie) && ie.Detail != "" {
		return ie.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// fromBridge wraps an error returned by the exec bridge itself
func fromBridge(op, what string, err error) *Error {
	kind := KindOf(err)
	if kind == KindUnknown || kind == InvalidInput || kind == Conflict {
		kind = ExecutionFailure
	}
	if kind == Timeout {
		return newError(Timeout, op, err, "%s timed out", what)
	}
	return newError(kind, op, err, "%s: %v", what, err)
}
