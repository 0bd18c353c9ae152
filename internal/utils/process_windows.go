//go:build windows

package utils

import (
	"os"
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// SetNewPG starts the child in its own process group.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup,
	}
}

// TerminateProcess has no graceful variant on Windows, the process is killed.
func TerminateProcess(p *os.Process) error {
	return p.Kill()
}

func KillProcess(p *os.Process) error {
	return p.Kill()
}
