// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Exec bridge types and interfaces

package exec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultExecTimeout is used when a caller passes a zero timeout
const DefaultExecTimeout = 60 * time.Second

// MaxOutputBytes caps how much stdout/stderr is retained per command
const MaxOutputBytes = 4 * 1024 * 1024

// Backend names
const (
	BackendDocker = "docker" // Docker Engine API
	BackendCLI    = "cli"    // docker binary
)

var (
	// ErrTimeout is wrapped by every bounded call that exceeded its budget
	ErrTimeout = errors.New("command timed out")
	// ErrContainerNotFound is returned when the target container is missing or stopped
	ErrContainerNotFound = errors.New("container not found")
)

// Bridge runs argument-vector commands inside a sandbox container.
//
// A non-zero exit is reported through CommandResult, not as an error.
// Errors are reserved for timeouts, a missing container and transport failures.
type Bridge interface {
	Exec(ctx context.Context, container string, argv []string, timeout time.Duration) (*CommandResult, error)
	CopyFile(ctx context.Context, container, hostPath, containerPath string) error
	CheckContainer(ctx context.Context, container string) error
}

// CommandResult contains the raw result of running a command
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited with code 0
func (r *CommandResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Detail returns the most useful failure text: stderr, else stdout
func (r *CommandResult) Detail() string {
	if r == nil {
		return "unknown error"
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Stdout); s != "" {
		return s
	}
	return "unknown error"
}

// TimeoutError records which command exceeded its budget
type TimeoutError struct {
	Program string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Program, e.Timeout)
}

// Unwrap lets callers match ErrTimeout with errors.Is
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Observer receives one observation per executed command
type Observer interface {
	ObserveExec(program string, exitCode int, timedOut bool, duration time.Duration)
}

// BridgeConfig configures a bridge built by New
type BridgeConfig struct {
	Backend         string // docker or cli
	DockerBinary    string // cli backend only, defaults to "docker"
	KillInContainer bool   // wrap argv with timeout(1) so expiries kill the process inside the container
}

// program returns the name used for logs and metrics
func program(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}

// effectiveTimeout applies the default for zero or negative timeouts
func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultExecTimeout
	}
	return timeout
}
