// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Workspace tests

package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sony-level/wsimport/internal/workspace"
)

func TestRefPaths(t *testing.T) {
	ref := workspace.Ref{AssessmentID: "7", Container: "sandbox", Root: "/workspace/7"}

	got := []string{ref.SourceDir(), ref.ContextDir(), ref.EntryPath("repo"), ref.ContextPath("notes.md")}
	want := []string{"/workspace/7/source", "/workspace/7/context", "/workspace/7/source/repo", "/workspace/7/context/notes.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateStageID(t *testing.T) {
	pattern := regexp.MustCompile(`^ws-\d{8}-\d{4}-[a-f0-9]{8}$`)

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := workspace.GenerateStageID()
		if !pattern.MatchString(id) {
			t.Fatalf("GenerateStageID() = %v, want format ws-YYYYMMDD-HHMM-xxxxxxxx", id)
		}
		if ids[id] {
			t.Errorf("Duplicate stage ID generated: %v", id)
		}
		ids[id] = true
	}
}

func TestStageLifecycle(t *testing.T) {
	base := t.TempDir()

	stage, err := workspace.NewStage(base)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}
	if !stage.Exists() {
		t.Fatal("stage directory should exist")
	}

	p, err := stage.WriteFile("../../evil/upload.zip", []byte("PK"))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if filepath.Dir(p) != stage.Path {
		t.Errorf("staged file escaped the stage: %s", p)
	}

	if err := stage.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if err := stage.Cleanup(); err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, workspace.StagingDirPrefix)); !os.IsNotExist(err) {
		t.Error("empty staging parent should be removed")
	}
}

func TestCleanupStale(t *testing.T) {
	base := t.TempDir()

	old, err := workspace.NewStage(base)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := workspace.NewStage(base)
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(old.Path, past, past); err != nil {
		t.Fatal(err)
	}

	n, err := workspace.CleanupStale(base, time.Hour)
	if err != nil {
		t.Fatalf("CleanupStale() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupStale() = %d, want 1", n)
	}
	if old.Exists() || !fresh.Exists() {
		t.Error("only the stale stage should be removed")
	}
}

func TestCleanupStaleMissingDir(t *testing.T) {
	n, err := workspace.CleanupStale(t.TempDir(), time.Hour)
	if err != nil || n != 0 {
		t.Errorf("CleanupStale() = %d, %v; want 0, nil", n, err)
	}
}

func TestFileStoreResolve(t *testing.T) {
	file := filepath.Join(t.TempDir(), "registry.yaml")
	content := `default_container: shared-sandbox
assessments:
  "1":
    container: ws-1
    workspace_path: /workspace/1/
  "2":
    workspace_path: /workspace/2
  "3": {}
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := workspace.LoadFileStore(file, "fallback")
	if err != nil {
		t.Fatalf("LoadFileStore() error = %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		id      string
		want    workspace.Ref
		wantErr error
	}{
		{id: "1", want: workspace.Ref{AssessmentID: "1", Container: "ws-1", Root: "/workspace/1"}},
		{id: "2", want: workspace.Ref{AssessmentID: "2", Container: "shared-sandbox", Root: "/workspace/2"}},
		{id: "3", wantErr: workspace.ErrNoWorkspace},
		{id: "404", wantErr: workspace.ErrUnknownAssessment},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := store.Resolve(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%s) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%s) error = %v", tt.id, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%s) mismatch (-want +got):\n%s", tt.id, diff)
			}
		})
	}
}

func TestFileStorePutPersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "registry.yaml")

	store, err := workspace.LoadFileStore(file, "sandbox")
	if err != nil {
		t.Fatalf("LoadFileStore() on missing file error = %v", err)
	}
	if err := store.Put("9", workspace.Assessment{WorkspacePath: "/workspace/9"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reloaded, err := workspace.LoadFileStore(file, "sandbox")
	if err != nil {
		t.Fatal(err)
	}
	ref, err := reloaded.Resolve(context.Background(), "9")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Container != "sandbox" || ref.Root != "/workspace/9" {
		t.Errorf("unexpected ref %+v", ref)
	}
}

func TestStaticResolver(t *testing.T) {
	r := workspace.Static{Ref: workspace.Ref{Container: "c", Root: "/w"}}
	ref, err := r.Resolve(context.Background(), "5")
	if err != nil || ref.AssessmentID != "5" {
		t.Errorf("Resolve() = %+v, %v", ref, err)
	}

	if _, err := (workspace.Static{}).Resolve(context.Background(), "5"); !errors.Is(err, workspace.ErrNoWorkspace) {
		t.Errorf("empty static resolver should fail with ErrNoWorkspace, got %v", err)
	}
}
