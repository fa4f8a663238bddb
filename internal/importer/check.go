// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Container readiness check

package importer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/prereq"
)

// Check verifies that the assessment's container is running and probes
// every known tool. Cached probe answers for the container are dropped first.
func (e *Engine) Check(ctx context.Context, assessmentID string) (summary *prereq.CheckSummary, err error) {
	const op = "check"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	if err := e.bridge.CheckContainer(ctx, ref.Container); err != nil {
		if errors.Is(err, exec.ErrContainerNotFound) {
			return nil, newError(NotFound, op, err, "container '%s' is not running", ref.Container)
		}
		return nil, fromBridge(op, "container check", err)
	}

	e.checker.Invalidate(ref.Container)
	summary = e.checker.CheckMultiple(ctx, ref.Container, e.checker.ToolNames())

	if missing := e.checker.MissingRequired(summary); len(missing) > 0 {
		e.logger.Warn("required tools missing", zap.String("container", ref.Container), zap.Strings("tools", missing))
	}
	return summary, nil
}
