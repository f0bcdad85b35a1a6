//go:build unix

package hooks

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/yidong72/chisel/internal/debug"
)

// #nosec G204 -- hook commands are registered by the project owner
func shellCommand(line string) *exec.Cmd {
	return exec.Command("sh", "-c", line)
}

// Hook scripts may spawn children (backgrounded or otherwise). Putting the
// shell in its own group and signalling -pid takes the whole tree down.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		debug.Logf("hooks: kill process group %d: %v\n", cmd.Process.Pid, err)
		_ = cmd.Process.Kill()
	}
}
