//go:build unix && !linux && !freebsd

package launcher

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child into its own process group.
// syscall.SysProcAttr has no Pdeathsig field on this platform (notably
// Darwin), so containment relies on process-group kill alone and on the
// Cleanup Guard's own termination path (spec.md §4.1.5's "where the kernel
// offers it" qualifier).
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
