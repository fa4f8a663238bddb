// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for context document storage

package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/provenance"
)

func TestUploadContextDocument(t *testing.T) {
	engine, box := newEngine(t)

	res, err := engine.UploadContext(context.Background(), "a1", "../Threat Model (v2).md", []byte("# threats\n"))
	if err != nil {
		t.Fatalf("UploadContext: %v", err)
	}
	if res.RoutedTo != importer.RoutedContext || res.Name != "Threat Model _v2_.md" {
		t.Errorf("unexpected result: %+v", res)
	}
	if box.ReadFile(t, "/ws/context/Threat Model _v2_.md") != "# threats\n" {
		t.Error("document not stored")
	}
}

func TestUploadContextRejects(t *testing.T) {
	engine, _ := newEngine(t, func(c *importer.Config) { c.MaxContextFileSize = 4 })
	ctx := context.Background()

	_, err := engine.UploadContext(ctx, "a1", "tool.exe", []byte("MZ"))
	wantKind(t, err, importer.InvalidInput)
	if !strings.HasPrefix(importer.Detail(err), "file type '.exe' not allowed. Allowed: ") {
		t.Errorf("detail = %q", importer.Detail(err))
	}

	_, err = engine.UploadContext(ctx, "a1", "notes.txt", []byte("12345"))
	wantKind(t, err, importer.InvalidInput)
	if importer.Detail(err) != "file size (5 B) exceeds limit (4 B)" {
		t.Errorf("detail = %q", importer.Detail(err))
	}
}

func TestUploadContextRoutesRepositoryExport(t *testing.T) {
	engine, box := newEngine(t)
	data := buildZip(t,
		zipMember{Name: ".git/HEAD", Content: "ref: refs/heads/main\n"},
		zipMember{Name: "main.go", Content: "package main\n"},
	)

	res, err := engine.UploadContext(context.Background(), "a1", "repo-export.zip", data)
	if err != nil {
		t.Fatalf("UploadContext: %v", err)
	}
	if res.RoutedTo != importer.RoutedSource || res.Kind != provenance.KindZip || !res.HadVCS {
		t.Errorf("unexpected result: %+v", res)
	}
	if box.Exists("/ws/source/repo-export/.git") {
		t.Error(".git should be stripped")
	}
	if !box.Exists("/ws/source/repo-export/main.go") {
		t.Error("export content missing")
	}
	if box.Exists("/ws/context/repo-export.zip") {
		t.Error("export must not be stored as a context document")
	}
}

func TestUploadContextRoutesWrappedExport(t *testing.T) {
	engine, box := newEngine(t)
	// zip -r export.zip proj/
	data := buildZip(t,
		zipMember{Name: "proj/.git/HEAD", Content: "ref: refs/heads/main\n"},
		zipMember{Name: "proj/main.go", Content: "package main\n"},
	)

	res, err := engine.UploadContext(context.Background(), "a1", "export.zip", data)
	if err != nil {
		t.Fatalf("UploadContext: %v", err)
	}
	if res.RoutedTo != importer.RoutedSource || !res.HadVCS {
		t.Errorf("unexpected result: %+v", res)
	}
	if left := vcsLeft(t, box, "/ws/source/export"); len(left) > 0 {
		t.Errorf(".git left in entry: %q", left)
	}
	if !box.Exists("/ws/source/export/proj/main.go") {
		t.Error("export content missing")
	}
}

func TestUploadContextPlainZipStaysInContext(t *testing.T) {
	engine, box := newEngine(t)

	res, err := engine.UploadContext(context.Background(), "a1", "diagrams.zip", buildZip(t, zipMember{Name: "a.svg", Content: "<svg/>"}))
	if err != nil {
		t.Fatalf("UploadContext: %v", err)
	}
	if res.RoutedTo != importer.RoutedContext {
		t.Errorf("routed to %q", res.RoutedTo)
	}
	if !box.Exists("/ws/context/diagrams.zip") {
		t.Error("zip should be stored as is")
	}
}

func TestListAndDeleteContext(t *testing.T) {
	engine, box := newEngine(t)
	ctx := context.Background()

	files, err := engine.ListContext(ctx, "a1")
	if err != nil || len(files) != 0 {
		t.Fatalf("empty workspace: files=%v err=%v", files, err)
	}

	box.WriteFile(t, "/ws/context/b.txt", "bbbb")
	box.WriteFile(t, "/ws/context/a.md", "a")
	box.WriteFile(t, "/ws/context/nested/c.txt", "ignored")

	files, err = engine.ListContext(ctx, "a1")
	if err != nil {
		t.Fatalf("ListContext: %v", err)
	}
	want := []importer.ContextFile{
		{Name: "a.md", Path: "context/a.md", Size: 1, SizeHuman: "1 B"},
		{Name: "b.txt", Path: "context/b.txt", Size: 4, SizeHuman: "4 B"},
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if err := engine.DeleteContext(ctx, "a1", "b.txt"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	wantKind(t, engine.DeleteContext(ctx, "a1", "b.txt"), importer.NotFound)
	wantKind(t, engine.DeleteContext(ctx, "a1", "../a.md"), importer.InvalidInput)
	wantKind(t, engine.DeleteContext(ctx, "a1", "nested"), importer.InvalidInput)

	files, _ = engine.ListContext(ctx, "a1")
	if diff := cmp.Diff([]string{"a.md"}, names(files), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("remaining mismatch (-want +got):\n%s", diff)
	}
}

func names(files []importer.ContextFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}
