//go:build unix

package shell

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid targets the whole group, so children of the shell die too.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
