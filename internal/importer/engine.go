// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Import engine: shared plumbing for every workflow

package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/config"
	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/locks"
	"github.com/sony-level/wsimport/internal/metrics"
	"github.com/sony-level/wsimport/internal/prereq"
	"github.com/sony-level/wsimport/internal/provenance"
	"github.com/sony-level/wsimport/internal/security"
	"github.com/sony-level/wsimport/internal/workspace"
)

// DefaultContextExtensions are accepted by UploadContext
var DefaultContextExtensions = []string{
	".pdf", ".txt", ".md", ".doc", ".docx",
	".json", ".yaml", ".yml", ".xml", ".ini", ".conf",
	".png", ".jpg", ".jpeg", ".svg",
	".zip", ".tar", ".gz",
	".csv", ".log", ".html", ".htm",
}

// Config wires an Engine. Only Bridge and Resolver are required.
type Config struct {
	Bridge   exec.Bridge
	Resolver workspace.Resolver
	Slots    locks.Registry
	Checker  *prereq.Checker
	Policy   *security.PolicyConfig
	Logger   *zap.Logger
	Metrics  metrics.Metrics

	MaxArchiveSize     int64
	MaxContextFileSize int64
	ContextExtensions  []string
	Timeouts           config.Timeouts
	StagingDir         string // host directory for upload staging, OS temp when empty
}

// Engine drives imports into sandbox containers
type Engine struct {
	bridge    exec.Bridge
	resolver  workspace.Resolver
	slots     locks.Registry
	checker   *prereq.Checker
	validator *security.Validator
	logger    *zap.Logger
	metrics   metrics.Metrics

	maxArchiveSize     int64
	maxContextFileSize int64
	contextExtensions  map[string]bool
	timeouts           config.Timeouts
	stagingDir         string
}

// New creates an engine, filling unset collaborators with in-process defaults
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Bridge == nil {
		return nil, errors.New("importer: a bridge is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("importer: a resolver is required")
	}

	e := &Engine{
		bridge:             cfg.Bridge,
		resolver:           cfg.Resolver,
		slots:              cfg.Slots,
		checker:            cfg.Checker,
		validator:          security.NewValidator(cfg.Policy),
		logger:             cfg.Logger,
		metrics:            cfg.Metrics,
		maxArchiveSize:     cfg.MaxArchiveSize,
		maxContextFileSize: cfg.MaxContextFileSize,
		timeouts:           withDefaults(cfg.Timeouts),
		stagingDir:         cfg.StagingDir,
		contextExtensions:  make(map[string]bool),
	}
	if e.slots == nil {
		e.slots = locks.NewLocal()
	}
	if e.checker == nil {
		e.checker = prereq.NewChecker(cfg.Bridge, e.timeouts.Probe)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.metrics == nil {
		e.metrics = metrics.Noop{}
	}
	if e.maxArchiveSize <= 0 {
		e.maxArchiveSize = config.DefaultMaxUploadSize
	}
	if e.maxContextFileSize <= 0 {
		e.maxContextFileSize = config.DefaultMaxUploadSize
	}

	exts := cfg.ContextExtensions
	if len(exts) == 0 {
		exts = DefaultContextExtensions
	}
	for _, ext := range exts {
		e.contextExtensions[strings.ToLower(ext)] = true
	}
	return e, nil
}

// withDefaults fills zero timeouts from the stock table
func withDefaults(t config.Timeouts) config.Timeouts {
	d := config.DefaultTimeouts()
	pick := func(v, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return v
	}
	return config.Timeouts{
		Clone:    pick(t.Clone, d.Clone),
		Branches: pick(t.Branches, d.Branches),
		Check:    pick(t.Check, d.Check),
		Read:     pick(t.Read, d.Read),
		Probe:    pick(t.Probe, d.Probe),
		Extract:  pick(t.Extract, d.Extract),
		Copy:     pick(t.Copy, d.Copy),
		Cleanup:  pick(t.Cleanup, d.Cleanup),
		Strip:    pick(t.Strip, d.Strip),
		Delete:   pick(t.Delete, d.Delete),
		List:     pick(t.List, d.List),
		Du:       pick(t.Du, d.Du),
	}
}

// Checker exposes the tool probe cache
func (e *Engine) Checker() *prereq.Checker {
	return e.checker
}

// resolve maps an assessment to its workspace
func (e *Engine) resolve(ctx context.Context, op, assessmentID string) (workspace.Ref, error) {
	ref, err := e.resolver.Resolve(ctx, assessmentID)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrUnknownAssessment):
			return ref, newError(NotFound, op, err, "assessment not found")
		case errors.Is(err, workspace.ErrNoWorkspace):
			return ref, newError(InvalidInput, op, err, "assessment has no workspace, create one first")
		}
		return ref, newError(ExecutionFailure, op, err, "failed to resolve assessment: %v", err)
	}
	return ref, nil
}

// acquire reserves the (workspace, name) slot for the whole workflow
func (e *Engine) acquire(ctx context.Context, op string, ref workspace.Ref, name string) (locks.Slot, error) {
	slot, err := e.slots.Acquire(ctx, ref.Key(), name)
	if err != nil {
		if errors.Is(err, locks.ErrBusy) {
			return nil, newError(Conflict, op, err, "'%s' is already being imported or deleted, retry later", name)
		}
		return nil, newError(ExecutionFailure, op, err, "failed to reserve '%s': %v", name, err)
	}
	return slot, nil
}

// run executes argv in the workspace container
func (e *Engine) run(ctx context.Context, ref workspace.Ref, timeout time.Duration, argv ...string) (*exec.CommandResult, error) {
	return e.bridge.Exec(ctx, ref.Container, argv, timeout)
}

// dirExists runs `test -d`. Any bridge error is returned as is.
func (e *Engine) dirExists(ctx context.Context, ref workspace.Ref, dir string) (bool, error) {
	res, err := e.run(ctx, ref, e.timeouts.Check, "test", "-d", dir)
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// ensureDir runs `mkdir -p`
func (e *Engine) ensureDir(ctx context.Context, op string, ref workspace.Ref, dir string) error {
	res, err := e.run(ctx, ref, e.timeouts.Check, "mkdir", "-p", dir)
	if err != nil {
		return fromBridge(op, "mkdir "+dir, err)
	}
	if !res.Success() {
		return newError(ExecutionFailure, op, nil, "failed to create %s: %s", dir, res.Detail())
	}
	return nil
}

// rejectExisting fails with Conflict when <source>/<name> already exists
func (e *Engine) rejectExisting(ctx context.Context, op string, ref workspace.Ref, name string) error {
	exists, err := e.dirExists(ctx, ref, ref.EntryPath(name))
	if err != nil {
		return fromBridge(op, "existence check", err)
	}
	if exists {
		return newError(Conflict, op, nil, "'%s' already exists in /source. Delete it first.", name)
	}
	return nil
}

// copyIn stages data on the host and transfers it to containerPath.
// The staging directory is removed on every exit path.
func (e *Engine) copyIn(ctx context.Context, op string, ref workspace.Ref, name string, data []byte, containerPath string) error {
	stage, err := workspace.NewStage(e.stagingDir)
	if err != nil {
		return newError(ExecutionFailure, op, err, "failed to stage upload: %v", err)
	}
	defer func() {
		if err := stage.Cleanup(); err != nil {
			e.logger.Warn("staging cleanup failed", zap.String("op", op), zap.Error(err))
			e.metrics.IncCleanupFailure(op)
		}
	}()

	hostPath, err := stage.WriteFile(name, data)
	if err != nil {
		return newError(ExecutionFailure, op, err, "failed to stage upload: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeouts.Copy)
	defer cancel()
	if err := e.bridge.CopyFile(cctx, ref.Container, hostPath, containerPath); err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return newError(Timeout, op, err, "copy into container timed out (%v)", e.timeouts.Copy)
		}
		return fromBridge(op, "copy into container", err)
	}
	return nil
}

// writeMeta stores the provenance record through the copy primitive
func (e *Engine) writeMeta(ctx context.Context, op string, ref workspace.Ref, entryPath string, r provenance.Record) error {
	payload, err := provenance.Encode(r)
	if err != nil {
		return newError(ExecutionFailure, op, err, "failed to encode provenance: %v", err)
	}
	return e.copyIn(ctx, op, ref, provenance.FileName, payload, path.Join(entryPath, provenance.FileName))
}

// stripVCS removes the named VCS directories below the entry, or
// <entry>/.git when none are named
func (e *Engine) stripVCS(ctx context.Context, op string, ref workspace.Ref, entryPath string, dirs ...string) error {
	if len(dirs) == 0 {
		dirs = []string{".git"}
	}
	argv := make([]string, 0, len(dirs)+2)
	argv = append(argv, "rm", "-rf")
	for _, dir := range dirs {
		argv = append(argv, path.Join(entryPath, dir))
	}

	res, err := e.run(ctx, ref, e.timeouts.Strip, argv...)
	if err != nil {
		return fromBridge(op, "removing .git", err)
	}
	if !res.Success() {
		return newError(ExecutionFailure, op, nil, "failed to remove .git: %s", res.Detail())
	}
	return nil
}

// observe records the outcome of a public operation
func (e *Engine) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	e.metrics.ObserveOperation(op, outcome, time.Since(start))
}

func sortEntries(entries []SourceEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

func relPath(subdir, name string) string {
	return fmt.Sprintf("%s/%s", subdir, name)
}
