// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Context document storage and upload routing

package importer

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/security"
	"github.com/sony-level/wsimport/internal/workspace"
)

// UploadContext stores a document under context/. A zip that carries a
// .git directory is a repository export and goes through the archive
// workflow into source/ instead.
func (e *Engine) UploadContext(ctx context.Context, assessmentID, filename string, data []byte) (result *ImportResult, err error) {
	const op = "context_upload"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
	if !e.contextExtensions[ext] {
		return nil, newError(InvalidInput, op, nil, "file type '%s' not allowed. Allowed: %s", ext, strings.Join(e.allowedExtensions(), ", "))
	}

	if ext == ".zip" {
		if vcs, _ := vcsDirs(data); len(vcs) > 0 {
			e.logger.Info("zip contains .git, routing to source", zap.String("assessment", assessmentID), zap.String("filename", filename))
			return e.importArchive(ctx, op, assessmentID, filename, data)
		}
	}

	size := int64(len(data))
	if size > e.maxContextFileSize {
		return nil, newError(InvalidInput, op, nil, "file size (%s) exceeds limit (%s)",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(e.maxContextFileSize)))
	}

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	safe := security.SanitizeFilename(filename)
	if err := e.ensureDir(ctx, op, ref, ref.ContextDir()); err != nil {
		return nil, err
	}
	if err := e.copyIn(ctx, op, ref, safe, data, ref.ContextPath(safe)); err != nil {
		return nil, err
	}

	e.logger.Info("context document uploaded", zap.String("assessment", ref.AssessmentID), zap.String("filename", safe), zap.Int64("size", size))

	return &ImportResult{
		SourceEntry: SourceEntry{
			Name:      safe,
			SizeHuman: humanize.IBytes(uint64(size)),
			Path:      relPath("context", safe),
		},
		Size:     size,
		RoutedTo: RoutedContext,
	}, nil
}

func (e *Engine) allowedExtensions() []string {
	exts := make([]string, 0, len(e.contextExtensions))
	for ext := range e.contextExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ListContext returns the regular files directly under context/, ordered by name
func (e *Engine) ListContext(ctx context.Context, assessmentID string) (files []ContextFile, err error) {
	const op = "context_list"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	files = []ContextFile{}

	exists, err := e.dirExists(ctx, ref, ref.ContextDir())
	if err != nil {
		return nil, fromBridge(op, "existence check", err)
	}
	if !exists {
		return files, nil
	}

	paths, err := e.findChildren(ctx, op, ref, ref.ContextDir(), "f")
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		name := path.Base(p)
		file := ContextFile{Name: name, Path: relPath("context", name), Size: -1, SizeHuman: "?"}
		if n, ok := e.fileSize(ctx, ref, p); ok {
			file.Size = n
			file.SizeHuman = humanize.IBytes(uint64(n))
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (e *Engine) fileSize(ctx context.Context, ref workspace.Ref, p string) (int64, bool) {
	res, err := e.run(ctx, ref, e.timeouts.Du, "stat", "-c", "%s", p)
	if err != nil || !res.Success() {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DeleteContext removes context/<filename>. The filename must already be
// in the canonical form produced by uploads.
func (e *Engine) DeleteContext(ctx context.Context, assessmentID, filename string) (err error) {
	const op = "context_delete"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") || security.SanitizeFilename(filename) != filename {
		return newError(InvalidInput, op, nil, "invalid filename")
	}

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return err
	}

	target := ref.ContextPath(filename)
	res, err := e.run(ctx, ref, e.timeouts.Check, "test", "-f", target)
	if err != nil {
		return fromBridge(op, "existence check", err)
	}
	if !res.Success() {
		return newError(NotFound, op, nil, "'%s' not found in /context", filename)
	}

	res, err = e.run(ctx, ref, e.timeouts.Check, "rm", "-f", target)
	if err != nil {
		return fromBridge(op, "rm", err)
	}
	if !res.Success() {
		return newError(ExecutionFailure, op, nil, "delete failed: %s", res.Detail())
	}

	e.logger.Info("context document deleted", zap.String("assessment", ref.AssessmentID), zap.String("filename", filename))
	return nil
}
