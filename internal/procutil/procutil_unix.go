//go:build unix

package procutil

import (
	"syscall"
)

// isAlive sends signal 0, which performs no action but still executes
// permission and existence checks (kill(2)).
func isAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	if err == syscall.ESRCH {
		return false
	}
	if err == syscall.EPERM {
		// The process exists but belongs to another user; it is alive.
		return true
	}
	return false
}

// terminate sends SIGKILL. Errors are not surfaced as a reason to retry —
// ESRCH (already exited) is the common, harmless case.
func terminate(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}
