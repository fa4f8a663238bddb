// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Git import workflow and remote branch discovery

package importer

import (
	"context"
	"errors"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/provenance"
	"github.com/sony-level/wsimport/internal/workspace"
)

// DetectBranches lists the remote's heads with `git ls-remote --heads`.
// It has no side effect on the workspace.
func (e *Engine) DetectBranches(ctx context.Context, assessmentID, url string) (branches []string, err error) {
	const op = "branches"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	url, err = e.validator.ValidateRemoteURL(url)
	if err != nil {
		return nil, newError(InvalidInput, op, err, "%s", Detail(err))
	}

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("detecting branches", zap.String("assessment", ref.AssessmentID), zap.String("url", url))

	res, err := e.run(ctx, ref, e.timeouts.Branches, "git", "ls-remote", "--heads", "--", url)
	if err != nil {
		if errors.Is(err, exec.ErrTimeout) {
			return nil, newError(Timeout, op, err, "branch detection timed out (%v)", e.timeouts.Branches)
		}
		return nil, fromBridge(op, "git ls-remote", err)
	}
	if !res.Success() {
		return nil, newError(ExecutionFailure, op, nil, "failed to reach repository: %s", res.Detail())
	}

	branches = provenance.ParseRemoteHeads(res.Stdout)
	e.logger.Info("detected branches", zap.String("url", url), zap.Int("count", len(branches)))
	return branches, nil
}

// Clone imports a remote repository as source/<name>, strips its history
// and records its provenance
func (e *Engine) Clone(ctx context.Context, assessmentID string, req CloneRequest) (entry *SourceEntry, err error) {
	const op = "clone"
	defer func(start time.Time) { e.observe(op, start, err) }(time.Now())

	url, err := e.validator.ValidateRemoteURL(req.URL)
	if err != nil {
		return nil, newError(InvalidInput, op, err, "%s", Detail(err))
	}
	branch, err := e.validator.ValidateBranch(req.Branch)
	if err != nil {
		return nil, newError(InvalidInput, op, err, "%s", Detail(err))
	}

	ref, err := e.resolve(ctx, op, assessmentID)
	if err != nil {
		return nil, err
	}

	name := e.validator.RepoNameFromURL(url)
	target := ref.EntryPath(name)
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
	scope.OnFailure("rm", "-rf", target)

	argv := []string{"git", "clone"}
	if req.Shallow {
		argv = append(argv, "--depth", "1")
	}
	if branch != "" {
		argv = append(argv, "--branch", branch, "--single-branch")
	}
	argv = append(argv, "--", url, target)

	log.Info("cloning repository", zap.String("url", url), zap.String("branch", branch), zap.Bool("shallow", req.Shallow))

	res, err := e.run(ctx, ref, e.timeouts.Clone, argv...)
	if err != nil {
		if errors.Is(err, exec.ErrTimeout) {
			return nil, newError(Timeout, op, err, "git clone timed out (%v)", e.timeouts.Clone)
		}
		return nil, fromBridge(op, "git clone", err)
	}
	if !res.Success() {
		return nil, newError(ExecutionFailure, op, nil, "git clone failed: %s", res.Detail())
	}

	if branch == "" {
		branch = e.headBranch(ctx, ref, target)
	}

	if err := e.stripVCS(ctx, op, ref, target); err != nil {
		return nil, err
	}

	record := provenance.Record{Type: provenance.KindGit, URL: url, Branch: branch}
	if err := e.writeMeta(ctx, op, ref, target, record); err != nil {
		return nil, err
	}

	scope.Commit()
	log.Info("repository cloned", zap.String("branch", branch))

	return &SourceEntry{
		Name:       name,
		Kind:       provenance.KindGit,
		URL:        url,
		Branch:     branch,
		Path:       relPath("source", name),
		Provenance: provenance.Known{Record: record},
	}, nil
}

// headBranch reads <dir>/.git/HEAD. Unreadable or detached heads yield "".
func (e *Engine) headBranch(ctx context.Context, ref workspace.Ref, dir string) string {
	res, err := e.run(ctx, ref, e.timeouts.Read, "cat", path.Join(dir, ".git", "HEAD"))
	if err != nil || !res.Success() {
		return ""
	}
	branch, _ := provenance.ParseHeadRef([]byte(res.Stdout))
	return branch
}
