// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Fake archive extraction and git

package fakecontainer

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/sony-level/wsimport/internal/exec"
)

// unzip -q <zip> -d <target>
func (c *Container) cmdUnzip(args []string) *exec.CommandResult {
	if len(args) != 4 || args[0] != "-q" || args[2] != "-d" {
		return fail(10, "unzip: unsupported arguments")
	}
	if err := extractZip(c.HostPath(args[1]), c.HostPath(args[3])); err != nil {
		return fail(9, "End-of-central-directory signature not found: "+err.Error())
	}
	return ok("")
}

// python3 -c <program> <zip> <target>
func (c *Container) cmdPython(args []string) *exec.CommandResult {
	if len(args) != 4 || args[0] != "-c" {
		return fail(2, "python3: unsupported arguments")
	}
	if err := extractZip(c.HostPath(args[2]), c.HostPath(args[3])); err != nil {
		return fail(1, "zipfile.BadZipFile: "+err.Error())
	}
	return ok("")
}

// extractZip restores regular files, directories, mode bits and symlinks,
// the way both unzip and the python fallback behave inside the container.
func extractZip(src, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	root, err := filepath.Abs(dst)
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		out := filepath.Join(root, filepath.FromSlash(f.Name))
		if out != root && !strings.HasPrefix(out, root+string(os.PathSeparator)) {
			return fmt.Errorf("unsafe path: %s", f.Name)
		}
		mode := f.Mode()

		switch {
		case mode.IsDir():
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			target, err := readEntry(f)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(string(target), out); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			data, err := readEntry(f)
			if err != nil {
				return err
			}
			perm := mode.Perm()
			if perm == 0 {
				perm = 0o644
			}
			if err := os.WriteFile(out, data, perm); err != nil {
				return err
			}
			// WriteFile is subject to umask
			if err := os.Chmod(out, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (c *Container) cmdGit(args []string) *exec.CommandResult {
	if len(args) == 0 {
		return fail(1, "usage: git <command>")
	}
	switch args[0] {
	case "clone":
		return c.gitClone(args[1:])
	case "ls-remote":
		return c.gitLsRemote(args[1:])
	}
	return fail(1, "git: '"+args[0]+"' is not a git command")
}

func (c *Container) remote(url string) *Remote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remotes[url]
}

// git clone [--depth N] [--branch B --single-branch] [--] <url> <target>
func (c *Container) gitClone(args []string) *exec.CommandResult {
	var (
		branch     string
		positional []string
	)
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case a == "--depth":
			i++
		case a == "--branch":
			if i+1 >= len(args) {
				return fail(129, "error: option `branch' requires a value")
			}
			branch = args[i+1]
			i++
		case a == "--single-branch":
		case strings.HasPrefix(a, "-"):
			return fail(129, "error: unknown option `"+a+"'")
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) != 2 {
		return fail(129, "usage: git clone [<options>] [--] <repo> [<dir>]")
	}
	url, target := positional[0], positional[1]

	r := c.remote(url)
	if r == nil {
		return fail(128, fmt.Sprintf("fatal: repository '%s' not found", url))
	}
	if branch == "" {
		branch = r.DefaultBranch
	}
	files, found := r.Branches[branch]
	if !found {
		return fail(128, fmt.Sprintf("fatal: Remote branch %s not found in upstream origin", branch))
	}

	dir := c.HostPath(target)
	if _, err := os.Stat(dir); err == nil {
		return fail(128, fmt.Sprintf("fatal: destination path '%s' already exists and is not an empty directory.", target))
	}

	write := func(rel, content string) error {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		return os.WriteFile(p, []byte(content), 0o644)
	}
	if err := write(".git/HEAD", "ref: refs/heads/"+branch+"\n"); err != nil {
		return fail(128, "fatal: "+err.Error())
	}
	if err := write(".git/config", "[remote \"origin\"]\n\turl = "+url+"\n"); err != nil {
		return fail(128, "fatal: "+err.Error())
	}
	for rel, content := range files {
		if err := write(path.Clean(rel), content); err != nil {
			return fail(128, "fatal: "+err.Error())
		}
	}
	return ok("")
}

// git ls-remote --heads [--] <url>
func (c *Container) gitLsRemote(args []string) *exec.CommandResult {
	var positional []string
	for _, a := range args {
		if a == "--heads" || a == "--" {
			continue
		}
		positional = append(positional, a)
	}
	if len(positional) != 1 {
		return fail(129, "usage: git ls-remote [--heads] <repository>")
	}
	r := c.remote(positional[0])
	if r == nil {
		return fail(128, fmt.Sprintf("fatal: repository '%s' not found", positional[0]))
	}

	names := make([]string, 0, len(r.Branches))
	for name := range r.Branches {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		fmt.Fprintf(&sb, "%040x\trefs/heads/%s\n", i+1, name)
	}
	return ok(sb.String())
}
