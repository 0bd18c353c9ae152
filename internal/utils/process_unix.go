//go:build !windows

package utils

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// SetNewPG starts the child in its own process group so that the whole
// group can be signalled.
func SetNewPG(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// TerminateProcess asks the process group led by p to exit (SIGTERM).
func TerminateProcess(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return p.Signal(syscall.SIGTERM)
}

// KillProcess force kills the process group led by p (SIGKILL).
func KillProcess(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return p.Kill()
}
