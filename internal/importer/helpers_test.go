// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Shared fixtures for importer tests

package importer_test

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/sony-level/wsimport/internal/config"
	"github.com/sony-level/wsimport/internal/exec/fakecontainer"
	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/workspace"
)

const (
	testContainer = "sandbox"
	testRoot      = "/ws"
	testRepoURL   = "https://example.com/org/repo.git"
)

type zipMember struct {
	Name    string
	Content string
	Mode    os.FileMode
}

// buildZip returns an in-memory archive. Names ending in "/" are directories.
func buildZip(t *testing.T, members ...zipMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.Name, Method: zip.Deflate}
		mode := m.Mode
		if mode == 0 {
			mode = 0o644
			if strings.HasSuffix(m.Name, "/") {
				mode = os.ModeDir | 0o755
			}
		}
		hdr.SetMode(mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip header %s: %v", m.Name, err)
		}
		if !strings.HasSuffix(m.Name, "/") {
			if _, err := w.Write([]byte(m.Content)); err != nil {
				t.Fatalf("zip write %s: %v", m.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// newEngine wires an engine over a fresh fake container
func newEngine(t *testing.T, mutate ...func(*importer.Config)) (*importer.Engine, *fakecontainer.Container) {
	t.Helper()
	box := fakecontainer.New(t, testContainer)
	box.AddRemote(testRepoURL, &fakecontainer.Remote{
		DefaultBranch: "main",
		Branches: map[string]map[string]string{
			"main":    {"README.md": "# repo\n", "cmd/app/main.go": "package main\n"},
			"develop": {"README.md": "# repo (develop)\n"},
		},
	})

	cfg := &importer.Config{
		Bridge:     box,
		Resolver:   workspace.Static{Ref: workspace.Ref{Container: testContainer, Root: testRoot}},
		StagingDir: t.TempDir(),
		Timeouts:   config.DefaultTimeouts(),
	}
	for _, m := range mutate {
		m(cfg)
	}

	engine, err := importer.New(cfg)
	if err != nil {
		t.Fatalf("importer.New: %v", err)
	}
	return engine, box
}

func withTimeouts(f func(*config.Timeouts)) func(*importer.Config) {
	return func(c *importer.Config) { f(&c.Timeouts) }
}

func wantKind(t *testing.T, err error, kind importer.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := importer.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err: %v)", got, kind, err)
	}
}

// noShell fails when any executed command went through a shell
func noShell(t *testing.T, box *fakecontainer.Container) {
	t.Helper()
	for _, argv := range box.Calls() {
		switch argv[0] {
		case "sh", "bash", "/bin/sh", "/bin/bash":
			t.Errorf("command ran through a shell: %q", argv)
		}
	}
}

// vcsLeft returns every .git entry below the given container directory
func vcsLeft(t *testing.T, box *fakecontainer.Container, dir string) []string {
	t.Helper()
	root := box.HostPath(dir)
	var left []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == ".git" {
			rel, _ := filepath.Rel(root, p)
			left = append(left, filepath.ToSlash(rel))
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return left
}

var shortDelay = 300 * time.Millisecond
