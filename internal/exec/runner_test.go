// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the docker CLI bridge

//go:build !windows

package exec_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sony-level/wsimport/internal/exec"
)

// fakeDocker writes a stand-in docker binary that runs `exec <container> argv...`
// locally and treats "cp" and "inspect" as simple host operations.
func fakeDocker(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
case "$1" in
exec)
	shift 2
	exec "$@"
	;;
cp)
	dst="${3#*:}"
	cp "$2" "$dst"
	;;
inspect)
	if [ "$4" = "running" ]; then echo true; exit 0; fi
	if [ "$4" = "stopped" ]; then echo false; exit 0; fi
	echo "Error: No such object: $4" >&2
	exit 1
	;;
esac
`
	p := filepath.Join(t.TempDir(), "docker")
	if err := os.WriteFile(p, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake docker: %v", err)
	}
	return p
}

func TestCLIBridgeExec(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))

	res, err := b.Exec(context.Background(), "sandbox", []string{"echo", "hello"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !res.Success() {
		t.Fatalf("expected success, got exit %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestCLIBridgeExitCodeIsNotAnError(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))

	res, err := b.Exec(context.Background(), "sandbox", []string{"sh", "-c", "echo boom >&2; exit 3"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if res.Detail() != "boom" {
		t.Errorf("detail = %q, want boom", res.Detail())
	}
}

func TestCLIBridgeArgvIsNotInterpreted(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))

	hostile := "$(touch pwned); `id` && rm -rf /"
	res, err := b.Exec(context.Background(), "sandbox", []string{"printf", "%s", hostile}, 10*time.Second)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.Stdout != hostile {
		t.Errorf("stdout = %q, want literal %q", res.Stdout, hostile)
	}
}

func TestCLIBridgeTimeout(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))

	start := time.Now()
	_, err := b.Exec(context.Background(), "sandbox", []string{"sleep", "10"}, 200*time.Millisecond)
	if !errors.Is(err, exec.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestCLIBridgeCancelInterrupts(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))
	marker := filepath.Join(t.TempDir(), "interrupted")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	script := `trap 'touch "$0"; exit 130' INT; while :; do sleep 0.1; done`
	_, err := b.Exec(ctx, "sandbox", []string{"sh", "-c", script, marker}, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, exec.ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("process group was not interrupted: %v", err)
	}
}

func TestCLIBridgeCopyFile(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))

	dir := t.TempDir()
	src := filepath.Join(dir, "in.zip")
	dst := filepath.Join(dir, "out.zip")
	if err := os.WriteFile(src, []byte("PK"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := b.CopyFile(context.Background(), "sandbox", src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "PK" {
		t.Errorf("copied content = %q, err %v", data, err)
	}
}

func TestCLIBridgeCheckContainer(t *testing.T) {
	b := exec.NewCLIBridge(fakeDocker(t))
	ctx := context.Background()

	if err := b.CheckContainer(ctx, "running"); err != nil {
		t.Errorf("running container: %v", err)
	}
	if err := b.CheckContainer(ctx, "stopped"); !errors.Is(err, exec.ErrContainerNotFound) {
		t.Errorf("stopped container: expected ErrContainerNotFound, got %v", err)
	}
	if err := b.CheckContainer(ctx, "missing"); !errors.Is(err, exec.ErrContainerNotFound) {
		t.Errorf("missing container: expected ErrContainerNotFound, got %v", err)
	}
}
