//go:build !unix

package shell

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
