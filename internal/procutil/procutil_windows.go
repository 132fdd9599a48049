//go:build windows

package procutil

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// isAlive opens the process with the minimum query rights and checks
// whether GetExitCodeProcess still reports STILL_ACTIVE.
func isAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == windows.STILL_ACTIVE
}

// terminate opens the process with PROCESS_TERMINATE rights and calls
// TerminateProcess. A process that has already exited simply fails to
// open, which is not treated as an error.
func terminate(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}

// parentOf walks a CreateToolhelp32Snapshot process list looking for pid,
// since Windows has no syscall that directly answers "what is this PID's
// parent" the way /proc/<pid>/stat does on Linux.
func parentOf(pid int) (int, bool) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snap, &entry); err != nil {
		return 0, false
	}
	for {
		if int(entry.ProcessID) == pid {
			return int(entry.ParentProcessID), true
		}
		if err := windows.Process32Next(snap, &entry); err != nil {
			return 0, false
		}
	}
}
