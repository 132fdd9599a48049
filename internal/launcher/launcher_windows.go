//go:build windows

package launcher

import (
	"os"
	"os/exec"
	"unsafe"

	"golang.org/x/sys/windows"
)

// configureSysProcAttr leaves SysProcAttr at its zero value on Windows: job
// object containment is applied after Start (afterStart), since
// AssignProcessToJobObject needs a process handle that only exists once the
// child is running.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &windows.SysProcAttr{}
}

// afterStart creates a kill-on-close job object and assigns the freshly
// started pid to it, the Windows analogue of the Setpgid+Pdeathsig
// containment in launcher_pdeathsig.go / launcher_setpgid.go (spec.md §4.1.5): when every handle to the
// job closes — including the implicit one held by a warden process that
// dies without running the Cleanup Guard — the kernel tears the child down.
// Returns 0 if the job object could not be set up; the child still runs,
// just without the extra containment.
//
// Uses golang.org/x/sys/windows, already required for the mmap registry,
// following the job-object/process-lifecycle idiom in hcsshim's exec_hcs.go.
func afterStart(pid int) uintptr {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		windows.CloseHandle(job)
		return 0
	}

	h, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		windows.CloseHandle(job)
		return 0
	}
	defer windows.CloseHandle(h)

	if err := windows.AssignProcessToJobObject(job, h); err != nil {
		windows.CloseHandle(job)
		return 0
	}
	return uintptr(job)
}

// closeJobHandle releases the job object handle once the child has exited
// and the Guard no longer needs the kill-on-close containment.
func closeJobHandle(h uintptr) {
	if h == 0 {
		return
	}
	windows.CloseHandle(windows.Handle(h))
}

// exitStatusCode maps a terminated child's *exec.ExitError to its raw exit
// code. Windows has no signal-termination concept analogous to Unix's
// WaitStatus.Signaled, so no 128+signal remapping applies here.
func exitStatusCode(exitErr *exec.ExitError) int {
	return exitErr.ExitCode()
}

// EnableConsoleVT turns on ENABLE_VIRTUAL_TERMINAL_PROCESSING on the
// warden's own stdout and stderr when they are console-attached, per
// spec.md §4.1.6. It never touches delegate I/O, which is redirected to the
// log file and never holds a console handle.
func EnableConsoleVT() {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		h := windows.Handle(f.Fd())
		var mode uint32
		if err := windows.GetConsoleMode(h, &mode); err != nil {
			continue
		}
		_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	}
}
