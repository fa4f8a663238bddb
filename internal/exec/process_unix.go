// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Unix process group handling for the docker CLI bridge

//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// setPlatformProcessGroup configures the docker client to run in its own process group.
// On Unix, this lets a timeout take down every helper the client spawned.
func setPlatformProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group
	}
}

// killProcessGroup kills the entire process group associated with the command.
// On Unix, we use negative PID to signal the entire process group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// Get the process group ID (same as PID when Setpgid is true)
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Fallback to killing just the process
		return cmd.Process.Kill()
	}

	// SIGKILL to all processes in the group
	return syscall.Kill(-pgid, syscall.SIGKILL)
}

// interruptProcessGroup sends SIGINT to the process group.
// The docker client detaches from the exec session on interrupt, so a
// canceled caller does not leave a half-attached client behind.
func interruptProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Fallback to interrupting just the process
		return cmd.Process.Signal(syscall.SIGINT)
	}

	return syscall.Kill(-pgid, syscall.SIGINT)
}
