// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Entry catalog: list and delete source entries

package importer

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/provenance"
	"github.com/sony-level/wsimport/internal/workspace"
)

// List returns the entries under source/, ordered by name.
// A workspace without a source directory has no entries.
func (e *Engine) List(ctx context.Context, assessmentID string) (entries []SourceEntry, err error) {
	const op = "list"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	entries = []SourceEntry{}

	exists, err := e.dirExists(ctx, ref, ref.SourceDir())
	if err != nil {
		return nil, fromBridge(op, "existence check", err)
	}
	if !exists {
		return entries, nil
	}

	dirs, err := e.findChildren(ctx, op, ref, ref.SourceDir(), "d")
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		entries = append(entries, e.describe(ctx, ref, dir))
	}
	sortEntries(entries)

	e.logger.Debug("listed source entries", zap.String("assessment", ref.AssessmentID), zap.Int("count", len(entries)))
	return entries, nil
}

// findChildren lists immediate children of dir of the given find(1) type
func (e *Engine) findChildren(ctx context.Context, op string, ref workspace.Ref, dir, kind string) ([]string, error) {
	res, err := e.run(ctx, ref, e.timeouts.List, "find", dir, "-maxdepth", "1", "-mindepth", "1", "-type", kind)
	if err != nil {
		return nil, fromBridge(op, "find", err)
	}
	if !res.Success() {
		e.logger.Warn("find failed", zap.String("dir", dir), zap.String("stderr", res.Detail()))
		return nil, nil
	}

	var children []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			children = append(children, line)
		}
	}
	return children, nil
}

// describe builds one entry from its provenance record, or from
// filesystem probes when the record is missing
func (e *Engine) describe(ctx context.Context, ref workspace.Ref, dir string) SourceEntry {
	name := path.Base(dir)
	entry := SourceEntry{
		Name: name,
		Path: relPath("source", name),
	}

	var prov provenance.Provenance
	if record, ok := e.readMeta(ctx, ref, dir); ok {
		prov = provenance.Known{Record: record}
	} else if vcs, _ := e.dirExists(ctx, ref, path.Join(dir, ".git")); vcs {
		prov = provenance.Inferred{Type: provenance.KindGit, HeadBranch: e.headBranch(ctx, ref, dir)}
	} else {
		prov = provenance.Inferred{Type: provenance.KindZip}
	}

	entry.Kind = prov.Kind()
	entry.URL = prov.URL()
	entry.Branch = prov.Branch()
	entry.Provenance = prov
	entry.SizeHuman = e.diskUsage(ctx, ref, dir)
	return entry
}

func (e *Engine) readMeta(ctx context.Context, ref workspace.Ref, dir string) (provenance.Record, bool) {
	res, err := e.run(ctx, ref, e.timeouts.Read, "cat", path.Join(dir, provenance.FileName))
	if err != nil || !res.Success() {
		return provenance.Record{}, false
	}
	record, err := provenance.Decode([]byte(res.Stdout))
	if err != nil {
		return provenance.Record{}, false
	}
	return record, true
}

// diskUsage returns the first field of `du -sh`, "?" when unavailable
func (e *Engine) diskUsage(ctx context.Context, ref workspace.Ref, dir string) string {
	res, err := e.run(ctx, ref, e.timeouts.Du, "du", "-sh", dir)
	if err != nil || !res.Success() {
		return "?"
	}
	size, _, _ := strings.Cut(res.Stdout, "\t")
	if size = strings.TrimSpace(size); size == "" {
		return "?"
	}
	return size
}

// Delete removes source/<name>. The name must already be in canonical form.
func (e *Engine) Delete(ctx context.Context, assessmentID, name string) (err error) {
	const op = "delete"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	safe, err := e.validator.ValidateEntryName(name)
	if err != nil {
		return newError(InvalidInput, op, err, "invalid directory name")
	}

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return err
	}

	slot, err := e.acquire(ctx, op, ref, safe)
	if err != nil {
		return err
	}
	defer slot.Release()

	target := ref.EntryPath(safe)
	exists, err := e.dirExists(ctx, ref, target)
	if err != nil {
		return fromBridge(op, "existence check", err)
	}
	if !exists {
		return newError(NotFound, op, nil, "'%s' not found in /source", safe)
	}

	res, err := e.run(ctx, ref, e.timeouts.Delete, "rm", "-rf", target)
	if err != nil {
		return fromBridge(op, "rm", err)
	}
	if !res.Success() {
		return newError(ExecutionFailure, op, nil, "delete failed: %s", res.Detail())
	}

	e.logger.Info("deleted source entry", zap.String("assessment", ref.AssessmentID), zap.String("name", safe))
	return nil
}
