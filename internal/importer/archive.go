// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Archive import workflow

package importer

import (
	"bytes"
	"context"
	"errors"
	"path"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/provenance"
	"github.com/sony-level/wsimport/internal/workspace"
)

// extractProgram runs as `python3 -c extractProgram <zip> <target>` when the
// container has no unzip. Paths only ever arrive through sys.argv.
// It restores permission bits and symlinks the way unzip does, and refuses
// members that would land outside the target.
const extractProgram = `import os, shutil, stat, sys, zipfile
src, dst = sys.argv[1], sys.argv[2]
os.makedirs(dst, exist_ok=True)
root = os.path.realpath(dst)
with zipfile.ZipFile(src) as z:
    for info in z.infolist():
        out = os.path.realpath(os.path.join(dst, info.filename))
        if out != root and not out.startswith(root + os.sep):
            sys.exit("unsafe path in archive: " + info.filename)
        mode = (info.external_attr >> 16) & 0xFFFF
        if info.is_dir():
            os.makedirs(out, exist_ok=True)
            continue
        os.makedirs(os.path.dirname(out), exist_ok=True)
        if stat.S_ISLNK(mode):
            os.symlink(z.read(info).decode("utf-8"), out)
            continue
        with z.open(info) as f, open(out, "wb") as o:
            shutil.copyfileobj(f, o)
        if stat.S_IMODE(mode):
            os.chmod(out, stat.S_IMODE(mode))
`

// UploadArchive extracts a zip upload into source/<name>
func (e *Engine) UploadArchive(ctx context.Context, assessmentID, filename string, data []byte) (result *ImportResult, err error) {
	const op = "upload"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	if !strings.EqualFold(path.Ext(filename), ".zip") {
		return nil, newError(InvalidInput, op, nil, "only .zip files are accepted")
	}
	return e.importArchive(ctx, op, assessmentID, filename, data)
}

// importArchive is shared by UploadArchive and source-routed context uploads.
// The extension has already been checked.
func (e *Engine) importArchive(ctx context.Context, op, assessmentID, filename string, data []byte) (*ImportResult, error) {
	size := int64(len(data))
	if size > e.maxArchiveSize {
		return nil, newError(InvalidInput, op, nil, "ZIP too large (%s, max %s)",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(e.maxArchiveSize)))
	}

	// an unreadable archive is left for the extractor to reject
	vcs, _ := vcsDirs(data)
	hasVCS := len(vcs) > 0

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	name := e.validator.ArchiveBaseName(filename)
	target := ref.EntryPath(name)
	zipPath := target + ".zip"
	log := e.logger.With(
		zap.String("assessment", ref.AssessmentID),
		zap.String("container", ref.Container),
		zap.String("name", name),
	)

	slot, err := e.acquire(ctx, op, ref, name)
	if err != nil {
		return nil, err
	}
	defer slot.Release()

	if err := e.rejectExisting(ctx, op, ref, name); err != nil {
		return nil, err
	}
	if err := e.ensureDir(ctx, op, ref, ref.SourceDir()); err != nil {
		return nil, err
	}

	scope := e.newScope(ctx, op, ref)
	defer scope.Close()
	scope.OnFailure("rm", "-f", zipPath)
	scope.OnFailure("rm", "-rf", target)

	log.Info("uploading archive", zap.Int64("size", size), zap.Bool("vcs", hasVCS))

	if err := e.copyIn(ctx, op, ref, name+".zip", data, zipPath); err != nil {
		return nil, err
	}

	res, err := e.extract(ctx, ref, zipPath, target)
	e.bestEffort(context.WithoutCancel(ctx), op, ref, "rm", "-f", zipPath)
	if err != nil {
		if errors.Is(err, exec.ErrTimeout) {
			return nil, newError(Timeout, op, err, "extraction timed out (%v)", e.timeouts.Extract)
		}
		return nil, fromBridge(op, "extraction", err)
	}
	if !res.Success() {
		return nil, newError(ExecutionFailure, op, nil, "extraction failed: %s", res.Detail())
	}

	if hasVCS {
		if err := e.stripVCS(ctx, op, ref, target, vcs...); err != nil {
			return nil, err
		}
	}

	record := provenance.Record{Type: provenance.KindZip}
	if err := e.writeMeta(ctx, op, ref, target, record); err != nil {
		return nil, err
	}

	scope.Commit()
	log.Info("archive extracted", zap.Int64("size", size))

	return &ImportResult{
		SourceEntry: SourceEntry{
			Name:       name,
			Kind:       provenance.KindZip,
			SizeHuman:  humanize.IBytes(uint64(size)),
			Path:       relPath("source", name),
			Provenance: provenance.Known{Record: record},
		},
		Size:     size,
		RoutedTo: RoutedSource,
		HadVCS:   hasVCS,
	}, nil
}

// extract prefers the container's unzip and falls back to whichever python
// the prerequisite checker found
func (e *Engine) extract(ctx context.Context, ref workspace.Ref, zipPath, target string) (*exec.CommandResult, error) {
	if e.checker.Has(ctx, ref.Container, "unzip") {
		return e.run(ctx, ref, e.timeouts.Extract, "unzip", "-q", zipPath, "-d", target)
	}

	py := e.checker.CheckTool(ctx, ref.Container, "python3")
	if py.Error != nil {
		return nil, py.Error
	}
	if !py.Found {
		return &exec.CommandResult{ExitCode: 127, Stderr: "neither unzip nor python3 is available in the container"}, nil
	}
	interpreter := "python3"
	if py.Path != "" {
		interpreter = path.Base(py.Path)
	}
	e.logger.Debug("unzip not available, using python fallback",
		zap.String("container", ref.Container), zap.String("interpreter", interpreter))
	return e.run(ctx, ref, e.timeouts.Extract, interpreter, "-c", extractProgram, zipPath, target)
}

// vcsDirs lists the .git directories named by the archive's members,
// relative to the extraction target. Members under an already listed
// .git and members with ".." segments are skipped.
func vcsDirs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if slices.Contains(strings.Split(name, "/"), "..") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(path.Clean("/"+name), "/"), "/")
		for i, part := range parts {
			if part != ".git" {
				continue
			}
			dir := strings.Join(parts[:i+1], "/")
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
			break
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
