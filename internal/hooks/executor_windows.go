//go:build windows

package hooks

import "os/exec"

// #nosec G204 -- hook commands are registered by the project owner
func shellCommand(line string) *exec.Cmd {
	return exec.Command("cmd", "/C", line)
}

// Windows lacks unix process groups; descendants that detach may survive a
// timeout.
func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
