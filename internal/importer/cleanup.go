// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Scoped rollback of partial workflow state

package importer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/workspace"
)

// cleanupScope collects rollback commands while a workflow runs.
// Close runs them in reverse unless Commit was called first.
//
//	scope := e.newScope(ctx, op, ref)
//	defer scope.Close()
//	...
//	scope.Commit()
type cleanupScope struct {
	e         *Engine
	ctx       context.Context
	op        string
	ref       workspace.Ref
	rollback  [][]string
	committed bool
}

// newScope detaches from the request's cancellation so rollback still
// runs after a client disconnect or an expired request deadline
func (e *Engine) newScope(ctx context.Context, op string, ref workspace.Ref) *cleanupScope {
	return &cleanupScope{e: e, ctx: context.WithoutCancel(ctx), op: op, ref: ref}
}

// OnFailure registers argv to run if the scope closes uncommitted
func (s *cleanupScope) OnFailure(argv ...string) {
	s.rollback = append(s.rollback, argv)
}

// Commit keeps everything the workflow produced
func (s *cleanupScope) Commit() {
	s.committed = true
}

// Close runs the rollback commands when the workflow did not commit
func (s *cleanupScope) Close() {
	if s.committed {
		return
	}
	for i := len(s.rollback) - 1; i >= 0; i-- {
		s.e.bestEffort(s.ctx, s.op, s.ref, s.rollback[i]...)
	}
}

// bestEffort runs a cleanup command on its own short budget.
// Failures are logged and counted, never returned.
func (e *Engine) bestEffort(ctx context.Context, op string, ref workspace.Ref, argv ...string) {
	res, err := e.run(ctx, ref, e.timeouts.Cleanup, argv...)
	if err == nil && res.Success() {
		return
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("container", ref.Container),
		zap.String("command", strings.Join(argv, " ")),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else {
		fields = append(fields, zap.Int("exit_code", res.ExitCode), zap.String("stderr", res.Detail()))
	}
	e.logger.Warn("cleanup failed", fields...)
	e.metrics.IncCleanupFailure(op)
}
