// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// In-process container double for workflow tests

// Package fakecontainer implements exec.Bridge over a host temp directory.
// It interprets the fixed command repertoire the importer dispatches
// (test, mkdir, rm, cat, find, du, which, unzip, python3 extraction,
// git clone, git ls-remote) so workflows can be exercised end to end.
package fakecontainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony-level/wsimport/internal/exec"
)

// Remote is a repository reachable by the fake git
type Remote struct {
	DefaultBranch string
	// Branches maps a branch name to its files (slash-separated path -> content)
	Branches map[string]map[string]string
}

// Container is a fake sandbox container rooted at a host directory
type Container struct {
	Name string
	Root string

	mu      sync.Mutex
	tools   map[string]bool
	remotes map[string]*Remote
	delays  map[string]time.Duration
	failing map[string]*exec.CommandResult
	calls   [][]string
	copies  []string
}

// New creates a fake container backed by a fresh temp directory.
// unzip, python3, git, du and find are available by default.
func New(t testing.TB, name string) *Container {
	t.Helper()
	return &Container{
		Name:    name,
		Root:    t.TempDir(),
		tools:   map[string]bool{"unzip": true, "python3": true, "git": true, "du": true, "find": true},
		remotes: map[string]*Remote{},
		delays:  map[string]time.Duration{},
		failing: map[string]*exec.CommandResult{},
	}
}

// AddRemote registers a repository URL
func (c *Container) AddRemote(url string, r *Remote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remotes[url] = r
}

// SetTool toggles availability of a tool for `which`
func (c *Container) SetTool(name string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[name] = available
}

// Delay makes every invocation of program take d before running
func (c *Container) Delay(program string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[program] = d
}

// Fail makes commands whose argv starts with prefix return res
func (c *Container) Fail(prefix []string, res *exec.CommandResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[strings.Join(prefix, "\x00")] = res
}

// Calls returns every argv executed so far (kill prefixes stripped)
func (c *Container) Calls() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Copies returns every container path written by CopyFile
func (c *Container) Copies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.copies...)
}

// HostPath maps a container path onto the backing directory
func (c *Container) HostPath(p string) string {
	return filepath.Join(c.Root, filepath.FromSlash(path.Clean("/"+p)))
}

// Exists reports whether a container path exists
func (c *Container) Exists(p string) bool {
	_, err := os.Lstat(c.HostPath(p))
	return err == nil
}

// WriteFile creates a file (and parents) at a container path
func (c *Container) WriteFile(t testing.TB, p, content string) {
	t.Helper()
	host := c.HostPath(p)
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", p, err)
	}
	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

// ReadFile reads a file at a container path
func (c *Container) ReadFile(t testing.TB, p string) string {
	t.Helper()
	data, err := os.ReadFile(c.HostPath(p))
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

// CheckContainer implements exec.Bridge
func (c *Container) CheckContainer(ctx context.Context, container string) error {
	if container != c.Name {
		return fmt.Errorf("%w: %s", exec.ErrContainerNotFound, container)
	}
	return nil
}

// CopyFile implements exec.Bridge
func (c *Container) CopyFile(ctx context.Context, container, hostPath, containerPath string) error {
	if err := c.CheckContainer(ctx, container); err != nil {
		return err
	}

	dst := c.HostPath(containerPath)
	if _, err := os.Stat(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("copy to container failed: %w", err)
	}

	src, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}

	c.mu.Lock()
	c.copies = append(c.copies, containerPath)
	c.mu.Unlock()
	return out.Close()
}

// Exec implements exec.Bridge
func (c *Container) Exec(ctx context.Context, container string, argv []string, timeout time.Duration) (*exec.CommandResult, error) {
	if err := c.CheckContainer(ctx, container); err != nil {
		return nil, err
	}
	argv = stripKillPrefix(argv)
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	if timeout <= 0 {
		timeout = exec.DefaultExecTimeout
	}

	c.mu.Lock()
	c.calls = append(c.calls, append([]string(nil), argv...))
	delay := c.delays[argv[0]]
	failure := c.matchFailure(argv)
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-time.After(timeout):
			return nil, &exec.TimeoutError{Program: argv[0], Timeout: timeout}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failure != nil {
		res := *failure
		return &res, nil
	}

	return c.dispatch(argv), nil
}

func (c *Container) matchFailure(argv []string) *exec.CommandResult {
	for n := len(argv); n > 0; n-- {
		if res, ok := c.failing[strings.Join(argv[:n], "\x00")]; ok {
			return res
		}
	}
	return nil
}

// stripKillPrefix removes a leading `timeout -s KILL <secs>`
func stripKillPrefix(argv []string) []string {
	if len(argv) >= 4 && argv[0] == "timeout" && argv[1] == "-s" && argv[2] == "KILL" {
		if _, err := strconv.Atoi(argv[3]); err == nil {
			return argv[4:]
		}
	}
	return argv
}

func ok(stdout string) *exec.CommandResult {
	return &exec.CommandResult{Stdout: stdout}
}

func fail(code int, stderr string) *exec.CommandResult {
	return &exec.CommandResult{ExitCode: code, Stderr: stderr}
}

func (c *Container) dispatch(argv []string) *exec.CommandResult {
	switch argv[0] {
	case "test":
		return c.cmdTest(argv[1:])
	case "mkdir":
		return c.cmdMkdir(argv[1:])
	case "rm":
		return c.cmdRm(argv[1:])
	case "cat":
		return c.cmdCat(argv[1:])
	case "find":
		return c.cmdFind(argv[1:])
	case "du":
		return c.cmdDu(argv[1:])
	case "which":
		return c.cmdWhich(argv[1:])
	case "stat":
		return c.cmdStat(argv[1:])
	case "unzip":
		return c.cmdUnzip(argv[1:])
	case "python3", "python":
		return c.cmdPython(argv[1:])
	case "git":
		return c.cmdGit(argv[1:])
	}
	return fail(127, argv[0]+": command not found")
}

func (c *Container) cmdTest(args []string) *exec.CommandResult {
	if len(args) != 2 {
		return fail(2, "test: bad arguments")
	}
	info, err := os.Stat(c.HostPath(args[1]))
	switch args[0] {
	case "-d":
		if err == nil && info.IsDir() {
			return ok("")
		}
	case "-f":
		if err == nil && info.Mode().IsRegular() {
			return ok("")
		}
	case "-e":
		if err == nil {
			return ok("")
		}
	default:
		return fail(2, "test: unknown operator "+args[0])
	}
	return fail(1, "")
}

func (c *Container) cmdMkdir(args []string) *exec.CommandResult {
	if len(args) != 2 || args[0] != "-p" {
		return fail(1, "mkdir: unsupported arguments")
	}
	if err := os.MkdirAll(c.HostPath(args[1]), 0o755); err != nil {
		return fail(1, "mkdir: "+err.Error())
	}
	return ok("")
}

func (c *Container) cmdRm(args []string) *exec.CommandResult {
	if len(args) < 2 || (args[0] != "-rf" && args[0] != "-f") {
		return fail(1, "rm: unsupported arguments")
	}
	for _, name := range args[1:] {
		target := c.HostPath(name)
		if target == c.Root {
			return fail(1, "rm: refusing to remove root")
		}
		var err error
		if args[0] == "-rf" {
			err = os.RemoveAll(target)
		} else if info, statErr := os.Lstat(target); statErr == nil {
			if info.IsDir() {
				return fail(1, "rm: cannot remove '"+name+"': Is a directory")
			}
			err = os.Remove(target)
		}
		if err != nil {
			return fail(1, "rm: "+err.Error())
		}
	}
	return ok("")
}

func (c *Container) cmdCat(args []string) *exec.CommandResult {
	if len(args) != 1 {
		return fail(1, "cat: unsupported arguments")
	}
	data, err := os.ReadFile(c.HostPath(args[0]))
	if err != nil {
		return fail(1, "cat: "+args[0]+": No such file or directory")
	}
	return ok(string(data))
}

func (c *Container) cmdFind(args []string) *exec.CommandResult {
	want := "-maxdepth 1 -mindepth 1 -type"
	if len(args) != 7 || strings.Join(args[1:6], " ") != want || (args[6] != "d" && args[6] != "f") {
		return fail(1, "find: unsupported arguments")
	}
	dir, wantDir := args[0], args[6] == "d"
	entries, err := os.ReadDir(c.HostPath(dir))
	if err != nil {
		return fail(1, "find: '"+dir+"': No such file or directory")
	}
	var sb strings.Builder
	for _, e := range entries {
		if e.IsDir() == wantDir && (wantDir || e.Type().IsRegular()) {
			sb.WriteString(path.Join(dir, e.Name()) + "\n")
		}
	}
	return ok(sb.String())
}

func (c *Container) cmdDu(args []string) *exec.CommandResult {
	if len(args) != 2 || args[0] != "-sh" {
		return fail(1, "du: unsupported arguments")
	}
	var total int64
	err := filepath.Walk(c.HostPath(args[1]), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return fail(1, "du: cannot access '"+args[1]+"'")
	}
	return ok(fmt.Sprintf("%dK\t%s\n", (total+1023)/1024+4, args[1]))
}

func (c *Container) cmdWhich(args []string) *exec.CommandResult {
	if len(args) != 1 {
		return fail(1, "")
	}
	c.mu.Lock()
	available := c.tools[args[0]]
	c.mu.Unlock()
	if !available {
		return fail(1, "")
	}
	return ok("/usr/bin/" + args[0] + "\n")
}

// stat -c %s <path>
func (c *Container) cmdStat(args []string) *exec.CommandResult {
	if len(args) != 3 || args[0] != "-c" || args[1] != "%s" {
		return fail(1, "stat: unsupported arguments")
	}
	info, err := os.Stat(c.HostPath(args[2]))
	if err != nil {
		return fail(1, "stat: cannot statx '"+args[2]+"': No such file or directory")
	}
	return ok(strconv.FormatInt(info.Size(), 10) + "\n")
}
