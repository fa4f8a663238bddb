// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Windows process handling for the docker CLI bridge

//go:build windows

package exec

import (
	"os/exec"
)

// setPlatformProcessGroup is a no-op on Windows
func setPlatformProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the docker client process.
// Windows has no process groups in the Unix sense, so only the client is killed.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// interruptProcessGroup kills the process; os.Interrupt is not
// deliverable to another process on Windows
func interruptProcessGroup(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}
