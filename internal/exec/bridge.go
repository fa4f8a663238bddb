// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Bridge construction and decorators (in-container kill, logging, metrics)

package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// New builds the configured backend wrapped with the kill and
// instrumentation decorators. The returned closer releases backend resources.
func New(config *BridgeConfig, logger *zap.Logger, observer Observer) (Bridge, io.Closer, error) {
	if config == nil {
		config = &BridgeConfig{Backend: BackendDocker, KillInContainer: true}
	}

	var (
		backend Bridge
		closer  io.Closer = nopCloser{}
	)

	switch config.Backend {
	case BackendDocker, "":
		db, err := NewDockerBridge()
		if err != nil {
			return nil, nil, err
		}
		backend, closer = db, db
	case BackendCLI:
		backend = NewCLIBridge(config.DockerBinary)
	default:
		return nil, nil, fmt.Errorf("unknown exec backend: %s", config.Backend)
	}

	if config.KillInContainer {
		backend = WithKillWrapper(backend)
	}
	return Instrument(backend, logger, observer), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// killWrapper prefixes every command with `timeout -s KILL <secs>` so the
// process inside the container dies with the budget, not just our stream.
type killWrapper struct {
	Bridge
}

// WithKillWrapper wraps a bridge with the in-container kill prefix
func WithKillWrapper(b Bridge) Bridge {
	return &killWrapper{Bridge: b}
}

func (k *killWrapper) Exec(ctx context.Context, container string, argv []string, timeout time.Duration) (*CommandResult, error) {
	return k.Bridge.Exec(ctx, container, KillPrefix(argv, effectiveTimeout(timeout)), timeout)
}

// KillPrefix returns argv prefixed with a timeout(1) invocation
func KillPrefix(argv []string, timeout time.Duration) []string {
	secs := int(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	wrapped := make([]string, 0, len(argv)+4)
	wrapped = append(wrapped, "timeout", "-s", "KILL", strconv.Itoa(secs))
	return append(wrapped, argv...)
}

// instrumented logs and observes every call
type instrumented struct {
	next     Bridge
	logger   *zap.Logger
	observer Observer
}

// Instrument wraps a bridge with debug logging and an optional observer
func Instrument(b Bridge, logger *zap.Logger, observer Observer) Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: b, logger: logger, observer: observer}
}

func (i *instrumented) Exec(ctx context.Context, container string, argv []string, timeout time.Duration) (*CommandResult, error) {
	startTime := time.Now()
	res, err := i.next.Exec(ctx, container, argv, timeout)
	duration := time.Since(startTime)

	timedOut := errors.Is(err, ErrTimeout)
	exitCode := -1
	if res != nil {
		exitCode = res.ExitCode
	}

	if i.observer != nil {
		i.observer.ObserveExec(program(argv), exitCode, timedOut, duration)
	}

	fields := []zap.Field{
		zap.String("container", container),
		zap.Strings("argv", argv),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
	}
	switch {
	case timedOut:
		i.logger.Warn("container command timed out", append(fields, zap.Duration("timeout", timeout))...)
	case err != nil:
		i.logger.Warn("container command failed", append(fields, zap.Error(err))...)
	default:
		i.logger.Debug("container command", fields...)
	}

	return res, err
}

func (i *instrumented) CopyFile(ctx context.Context, container, hostPath, containerPath string) error {
	startTime := time.Now()
	err := i.next.CopyFile(ctx, container, hostPath, containerPath)

	if i.observer != nil {
		exitCode := 0
		if err != nil {
			exitCode = 1
		}
		i.observer.ObserveExec("copy", exitCode, errors.Is(err, context.DeadlineExceeded), time.Since(startTime))
	}

	i.logger.Debug("copied file into container",
		zap.String("container", container),
		zap.String("host_path", hostPath),
		zap.String("container_path", containerPath),
		zap.Error(err),
	)
	return err
}

func (i *instrumented) CheckContainer(ctx context.Context, container string) error {
	return i.next.CheckContainer(ctx, container)
}
