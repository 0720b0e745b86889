//go:build unix

package weave

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the script in its own process group so that
// cancellation kills everything it started.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
