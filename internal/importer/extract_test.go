// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the python extraction fallback, run on the host interpreter

package importer

import (
	"fmt"
	"io/fs"
	"os"
	osexec "os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

type member struct {
	name string
	body string
	mode os.FileMode
}

var parityMembers = []member{
	{"bin/", "", os.ModeDir | 0o755},
	{"bin/run.sh", "#!/bin/sh\necho ok\n", 0o755},
	{"bin/start", "run.sh", os.ModeSymlink | 0o777},
	{"docs/notes.txt", "private\n", 0o640},
	{"README", "read me\n", 0o644},
	{"lib/link-to-docs", "../docs", os.ModeSymlink | 0o777},
}

// writeArchive stores members in a zip under dir
func writeArchive(t *testing.T, dir string, members []member) string {
	t.Helper()
	p := filepath.Join(dir, "archive.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.name, Method: zip.Deflate}
		hdr.SetMode(m.mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(m.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

// snapshot describes every path below root by kind, permission bits,
// content and link target. Directory modes are left out because the
// fallback creates directories under the process umask.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == root {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			tree[rel] = "link -> " + target
		case d.IsDir():
			tree[rel] = "dir"
		default:
			info, err := d.Info()
			if err != nil {
				return err
			}
			body, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			tree[rel] = fmt.Sprintf("file %04o %q", info.Mode().Perm(), body)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return tree
}

func lookTool(t *testing.T, name string) string {
	t.Helper()
	p, err := osexec.LookPath(name)
	if err != nil {
		t.Skipf("%s not on PATH", name)
	}
	return p
}

func runFallback(t *testing.T, python, zipPath, dst string) ([]byte, error) {
	t.Helper()
	return osexec.Command(python, "-c", extractProgram, zipPath, dst).CombinedOutput()
}

func TestExtractProgramRestoresTree(t *testing.T) {
	python := lookTool(t, "python3")
	dir := t.TempDir()
	zipPath := writeArchive(t, dir, parityMembers)
	dst := filepath.Join(dir, "out")

	if out, err := runFallback(t, python, zipPath, dst); err != nil {
		t.Fatalf("extraction failed: %v\n%s", err, out)
	}

	want := map[string]string{
		"bin":              "dir",
		"bin/run.sh":       fmt.Sprintf("file 0755 %q", "#!/bin/sh\necho ok\n"),
		"bin/start":        "link -> run.sh",
		"docs":             "dir",
		"docs/notes.txt":   fmt.Sprintf("file 0640 %q", "private\n"),
		"README":           fmt.Sprintf("file 0644 %q", "read me\n"),
		"lib":              "dir",
		"lib/link-to-docs": "link -> ../docs",
	}
	if diff := cmp.Diff(want, snapshot(t, dst)); diff != "" {
		t.Errorf("extracted tree mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractProgramMatchesUnzip(t *testing.T) {
	python := lookTool(t, "python3")
	unzip := lookTool(t, "unzip")
	dir := t.TempDir()
	zipPath := writeArchive(t, dir, parityMembers)

	viaUnzip := filepath.Join(dir, "unzip")
	if out, err := osexec.Command(unzip, "-q", zipPath, "-d", viaUnzip).CombinedOutput(); err != nil {
		t.Fatalf("unzip failed: %v\n%s", err, out)
	}
	viaPython := filepath.Join(dir, "python")
	if out, err := runFallback(t, python, zipPath, viaPython); err != nil {
		t.Fatalf("extraction failed: %v\n%s", err, out)
	}

	if diff := cmp.Diff(snapshot(t, viaUnzip), snapshot(t, viaPython)); diff != "" {
		t.Errorf("python fallback differs from unzip (-unzip +python):\n%s", diff)
	}
}

func TestExtractProgramRejectsEscapes(t *testing.T) {
	python := lookTool(t, "python3")

	tests := []struct {
		name    string
		members []member
	}{
		{"parent segment", []member{
			{"../escape.txt", "x", 0o644},
		}},
		{"nested parent segment", []member{
			{"a/../../escape.txt", "x", 0o644},
		}},
		{"through symlink", []member{
			{"up", "..", os.ModeSymlink | 0o777},
			{"up/escape.txt", "x", 0o644},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			zipPath := writeArchive(t, dir, tt.members)
			dst := filepath.Join(dir, "out")

			out, err := runFallback(t, python, zipPath, dst)
			if err == nil {
				t.Fatalf("expected extraction to fail, output:\n%s", out)
			}
			if _, statErr := os.Lstat(filepath.Join(dir, "escape.txt")); statErr == nil {
				t.Error("member was written outside the target")
			}
		})
	}
}

func TestVCSDirs(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		want    []string
	}{
		{"none", []string{"main.go", "docs/git.md"}, nil},
		{"top level", []string{".git/HEAD", ".git/config", "main.go"}, []string{".git"}},
		{"wrapper directory", []string{"proj/.git/HEAD", "proj/main.go"}, []string{"proj/.git"}},
		{"directory entry only", []string{"proj/.git/"}, []string{"proj/.git"}},
		{"gitlink file", []string{"sub/.git"}, []string{"sub/.git"}},
		{"nested repositories", []string{"a/.git/HEAD", "a/.git/modules/b/.git/HEAD", "a/vendor/c/.git/config"},
			[]string{"a/.git", "a/vendor/c/.git"}},
		{"backslashes", []string{`proj\.git\HEAD`}, []string{"proj/.git"}},
		{"parent segments skipped", []string{"../.git/HEAD", "x/../../.git/config"}, nil},
		{"lookalikes", []string{".github/workflows/ci.yml", "x.git/HEAD", ".gitignore"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := make([]member, 0, len(tt.members))
			for _, name := range tt.members {
				members = append(members, member{name: name, mode: 0o644})
			}
			data, err := os.ReadFile(writeArchive(t, t.TempDir(), members))
			if err != nil {
				t.Fatal(err)
			}

			got, err := vcsDirs(data)
			if err != nil {
				t.Fatalf("vcsDirs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("vcsDirs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVCSDirsRejectsCorruptArchive(t *testing.T) {
	if _, err := vcsDirs([]byte("not a zip")); err == nil {
		t.Error("expected an error for a corrupt archive")
	}
}
