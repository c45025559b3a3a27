//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr starts the child in a new session so it has no
// controlling terminal and outlives the controller.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
