// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// docker CLI bridge: docker exec / docker cp as child processes

package exec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultDockerBinary is the docker client used by the CLI bridge
const DefaultDockerBinary = "docker"

// CLIBridge drives the container through the docker binary
type CLIBridge struct {
	binary string
}

// NewCLIBridge creates a new CLI bridge
func NewCLIBridge(binary string) *CLIBridge {
	if binary == "" {
		binary = DefaultDockerBinary
	}
	return &CLIBridge{binary: binary}
}

// Exec runs argv inside the container via `docker exec`
func (b *CLIBridge) Exec(ctx context.Context, container string, argv []string, timeout time.Duration) (*CommandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	args := make([]string, 0, len(argv)+2)
	args = append(args, "exec", container)
	args = append(args, argv...)

	return b.run(ctx, program(argv), effectiveTimeout(timeout), args)
}

// CopyFile copies one host file into the container via `docker cp`.
// The call is bounded by the caller's context.
func (b *CLIBridge) CopyFile(ctx context.Context, container, hostPath, containerPath string) error {
	res, err := b.run(ctx, "docker cp", 0, []string{"cp", hostPath, container + ":" + containerPath})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("docker cp failed: %s", res.Detail())
	}
	return nil
}

// CheckContainer confirms the container exists and is running
func (b *CLIBridge) CheckContainer(ctx context.Context, container string) error {
	res, err := b.run(ctx, "docker inspect", 10*time.Second,
		[]string{"inspect", "--format", "{{.State.Running}}", container})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	if strings.TrimSpace(res.Stdout) != "true" {
		return fmt.Errorf("%w: %s is not running", ErrContainerNotFound, container)
	}
	return nil
}

// run executes the docker binary in its own process group. On timeout the
// whole group is killed; when the caller cancels it is interrupted instead.
// Captured output is discarded in both cases.
func (b *CLIBridge) run(ctx context.Context, name string, timeout time.Duration, args []string) (*CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.binary, args...)
	setPlatformProcessGroup(cmd)
	cmd.Cancel = func() error {
		if errors.Is(ctx.Err(), context.Canceled) {
			return interruptProcessGroup(cmd)
		}
		return killProcessGroup(cmd)
	}
	// an interrupted client that does not exit is killed after WaitDelay
	cmd.WaitDelay = 2 * time.Second

	stdout := newCapture(MaxOutputBytes)
	stderr := newCapture(MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &TimeoutError{Program: name, Timeout: timeout}
		}
		return nil, ctxErr
	}

	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", b.binary, err)
	}

	return result, nil
}

// capture is a bounded buffer; bytes past the limit are dropped
type capture struct {
	buf   []byte
	limit int
}

func newCapture(limit int) *capture {
	return &capture{limit: limit}
}

func (c *capture) Write(p []byte) (int, error) {
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) > room {
			c.buf = append(c.buf, p[:room]...)
		} else {
			c.buf = append(c.buf, p...)
		}
	}
	return len(p), nil
}

func (c *capture) String() string {
	return strings.ToValidUTF8(string(c.buf), "�")
}
