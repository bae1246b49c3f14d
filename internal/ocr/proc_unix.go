//go:build unix

package ocr

import (
	"os/exec"
	"syscall"
)

// isolate puts the command into its own process group and makes cancellation
// kill the whole group, so helpers spawned by ocrmypdf (tesseract, ghostscript)
// die with it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
