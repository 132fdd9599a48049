//go:build darwin

package procutil

import "golang.org/x/sys/unix"

// parentOf queries the kern.proc.pid sysctl node, the standard BSD/Darwin
// way to read another process's kinfo_proc structure without /proc (Darwin
// has no /proc filesystem by default).
func parentOf(pid int) (int, bool) {
	kp, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil {
		return 0, false
	}
	return int(kp.Eproc.Ppid), true
}
