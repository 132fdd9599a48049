//go:build linux || freebsd

package launcher

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child into its own process group and
// arms a parent-death signal, so the kernel terminates it even if the
// warden dies without running the Cleanup Guard (spec.md §4.1.5). Pdeathsig
// is only defined in syscall.SysProcAttr on Linux and FreeBSD; other unix
// targets fall back to process-group containment alone in
// launcher_setpgid.go.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
