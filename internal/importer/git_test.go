// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the git import workflow

package importer_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sony-level/wsimport/internal/config"
	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/provenance"
)

func TestCloneDefaultBranch(t *testing.T) {
	engine, box := newEngine(t)

	entry, err := engine.Clone(context.Background(), "a1", importer.CloneRequest{URL: testRepoURL, Shallow: true})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if entry.Name != "repo" || entry.Kind != provenance.KindGit || entry.Branch != "main" || entry.URL != testRepoURL {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if box.Exists("/ws/source/repo/.git") {
		t.Error(".git should have been removed")
	}
	if !box.Exists("/ws/source/repo/cmd/app/main.go") {
		t.Error("repository content missing")
	}

	meta := box.ReadFile(t, "/ws/source/repo/.source_meta")
	want := "type=git\nurl=" + testRepoURL + "\nbranch=main\n"
	if meta != want {
		t.Errorf("meta = %q, want %q", meta, want)
	}

	found := false
	for _, p := range box.Copies() {
		if p == "/ws/source/repo/.source_meta" {
			found = true
		}
	}
	if !found {
		t.Errorf("meta should be written through CopyFile, copies: %v", box.Copies())
	}
	noShell(t, box)
}

func TestCloneArgv(t *testing.T) {
	engine, box := newEngine(t)

	if _, err := engine.Clone(context.Background(), "a1", importer.CloneRequest{URL: testRepoURL, Branch: "develop", Shallow: true}); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	var clone []string
	for _, argv := range box.Calls() {
		if len(argv) > 1 && argv[0] == "git" && argv[1] == "clone" {
			clone = argv
		}
	}
	want := []string{"git", "clone", "--depth", "1", "--branch", "develop", "--single-branch", "--", testRepoURL, "/ws/source/repo"}
	if diff := cmp.Diff(want, clone); diff != "" {
		t.Errorf("clone argv mismatch (-want +got):\n%s", diff)
	}
	if got := box.ReadFile(t, "/ws/source/repo/README.md"); !strings.Contains(got, "develop") {
		t.Errorf("expected develop content, got %q", got)
	}
}

func TestCloneRejectsBadInput(t *testing.T) {
	engine, box := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  importer.CloneRequest
	}{
		{"empty url", importer.CloneRequest{}},
		{"scheme", importer.CloneRequest{URL: "file:///etc"}},
		{"shell", importer.CloneRequest{URL: "https://example.com/x;rm -rf /"}},
		{"option branch", importer.CloneRequest{URL: testRepoURL, Branch: "--upload-pack=evil"}},
		{"bad branch", importer.CloneRequest{URL: testRepoURL, Branch: "a..b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Clone(ctx, "a1", tt.req)
			wantKind(t, err, importer.InvalidInput)
		})
	}
	if n := len(box.Calls()); n != 0 {
		t.Errorf("invalid input must not reach the container, got %d calls", n)
	}
}

func TestCloneExistingIsConflict(t *testing.T) {
	engine, box := newEngine(t)
	box.WriteFile(t, "/ws/source/repo/keep.txt", "mine")

	_, err := engine.Clone(context.Background(), "a1", importer.CloneRequest{URL: testRepoURL})
	wantKind(t, err, importer.Conflict)
	if importer.Detail(err) != "'repo' already exists in /source. Delete it first." {
		t.Errorf("detail = %q", importer.Detail(err))
	}
	if box.ReadFile(t, "/ws/source/repo/keep.txt") != "mine" {
		t.Error("existing entry must be untouched")
	}
}

func TestCloneFailureCleansUp(t *testing.T) {
	engine, box := newEngine(t)

	_, err := engine.Clone(context.Background(), "a1", importer.CloneRequest{URL: "https://example.com/org/missing.git"})
	wantKind(t, err, importer.ExecutionFailure)
	if !strings.Contains(importer.Detail(err), "repository 'https://example.com/org/missing.git' not found") {
		t.Errorf("stderr should be carried verbatim, got %q", importer.Detail(err))
	}
	if box.Exists("/ws/source/missing") {
		t.Error("partial clone should be removed")
	}
}

func TestCloneTimeoutCleansUp(t *testing.T) {
	engine, box := newEngine(t, withTimeouts(func(tm *config.Timeouts) { tm.Clone = 50 * time.Millisecond }))
	box.Delay("git", shortDelay)

	_, err := engine.Clone(context.Background(), "a1", importer.CloneRequest{URL: testRepoURL})
	wantKind(t, err, importer.Timeout)
	if box.Exists("/ws/source/repo") {
		t.Error("timed out clone should leave nothing behind")
	}

	calls := box.Calls()
	last := calls[len(calls)-1]
	if diff := cmp.Diff([]string{"rm", "-rf", "/ws/source/repo"}, last); diff != "" {
		t.Errorf("rollback should run last (-want +got):\n%s", diff)
	}
}

func TestConcurrentClonesConflict(t *testing.T) {
	engine, box := newEngine(t)
	box.Delay("git", shortDelay)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Clone(ctx, "a1", importer.CloneRequest{URL: testRepoURL})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case importer.KindOf(err) == importer.Conflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected one success and one conflict, got %d/%d", ok, conflicts)
	}
	if !box.Exists("/ws/source/repo/README.md") {
		t.Error("the winning clone must be intact")
	}
}

func TestDetectBranches(t *testing.T) {
	engine, box := newEngine(t)

	branches, err := engine.DetectBranches(context.Background(), "a1", testRepoURL)
	if err != nil {
		t.Fatalf("DetectBranches: %v", err)
	}
	if diff := cmp.Diff([]string{"develop", "main"}, branches); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}
	if box.Exists("/ws/source") {
		t.Error("branch detection must not touch the workspace")
	}
}

func TestDetectBranchesErrors(t *testing.T) {
	engine, box := newEngine(t, withTimeouts(func(tm *config.Timeouts) { tm.Branches = 50 * time.Millisecond }))
	ctx := context.Background()

	_, err := engine.DetectBranches(ctx, "a1", "https://example.com/none.git")
	wantKind(t, err, importer.ExecutionFailure)
	if !strings.HasPrefix(importer.Detail(err), "failed to reach repository: ") {
		t.Errorf("detail = %q", importer.Detail(err))
	}

	box.Delay("git", shortDelay)
	_, err = engine.DetectBranches(ctx, "a1", testRepoURL)
	wantKind(t, err, importer.Timeout)

	_, err = engine.DetectBranches(ctx, "a1", "ftp://example.com/x")
	wantKind(t, err, importer.InvalidInput)
}
