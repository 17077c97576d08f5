//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

type processHandle struct{}

// configure starts the program in its own process group so cancellation
// reaches everything it spawned.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pgid, err := syscall.Getpgid(cmd.Process.Pid)
		if err != nil {
			return cmd.Process.Kill()
		}
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func attach(*exec.Cmd) *processHandle { return nil }

func release(*processHandle) {}
