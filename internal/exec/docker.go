// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Docker Engine API bridge

package exec

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	archive "github.com/moby/go-archive"
)

// DockerBridge talks to the Docker daemon directly
type DockerBridge struct {
	client *client.Client
}

// NewDockerBridge creates a bridge from the standard DOCKER_* environment
func NewDockerBridge() (*DockerBridge, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerBridge{client: cli}, nil
}

// Close releases the underlying client
func (b *DockerBridge) Close() error {
	return b.client.Close()
}

// Exec creates, attaches and inspects an exec instance
func (b *DockerBridge) Exec(ctx context.Context, containerID string, argv []string, timeout time.Duration) (*CommandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	timeout = effectiveTimeout(timeout)

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()

	ex, err := b.client.ContainerExecCreate(tctx, containerID, container.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, b.classify(tctx, argv, timeout, containerID, "create exec", err)
	}

	hj, err := b.client.ContainerExecAttach(tctx, ex.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, b.classify(tctx, argv, timeout, containerID, "attach exec", err)
	}
	defer hj.Close()

	stdout := newCapture(MaxOutputBytes)
	stderr := newCapture(MaxOutputBytes)

	// The hijacked connection ignores context deadlines, so copy in the
	// background and close the connection when the budget runs out.
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(stdout, stderr, hj.Reader)
		done <- copyErr
	}()

	select {
	case err = <-done:
	case <-tctx.Done():
		hj.Close()
		<-done
		return nil, b.classify(tctx, argv, timeout, containerID, "read exec output", tctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("read exec output: %w", err)
	}

	insp, err := b.client.ContainerExecInspect(tctx, ex.ID)
	if err != nil {
		return nil, b.classify(tctx, argv, timeout, containerID, "inspect exec", err)
	}

	return &CommandResult{
		ExitCode: insp.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}, nil
}

// CopyFile streams a single host file into the container as a tar archive,
// renamed to the base name of containerPath. The parent directory must exist.
func (b *DockerBridge) CopyFile(ctx context.Context, containerID, hostPath, containerPath string) error {
	dir, base := filepath.Split(hostPath)

	rd, err := archive.TarWithOptions(dir, &archive.TarOptions{
		IncludeFiles: []string{base},
		RebaseNames:  map[string]string{base: path.Base(containerPath)},
	})
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", hostPath, err)
	}
	defer rd.Close()

	err = b.client.CopyToContainer(ctx, containerID, path.Dir(containerPath), rd, container.CopyToContainerOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
		}
		return fmt.Errorf("copy to container failed: %w", err)
	}
	return nil
}

// CheckContainer confirms the container exists and is running
func (b *DockerBridge) CheckContainer(ctx context.Context, containerID string) error {
	info, err := b.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
		}
		return fmt.Errorf("inspect container: %w", err)
	}
	if info.State == nil || !info.State.Running {
		return fmt.Errorf("%w: %s is not running", ErrContainerNotFound, containerID)
	}
	return nil
}

func (b *DockerBridge) classify(ctx context.Context, argv []string, timeout time.Duration, containerID, step string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Program: program(argv), Timeout: timeout}
	}
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	return fmt.Errorf("%s: %w", step, err)
}
