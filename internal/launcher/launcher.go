// Package launcher implements the Child Launcher (spec.md §4.1): resolves
// the delegate binary, creates its per-run log file, spawns it with stdin
// passthrough and merged stdout+stderr teed to the log, and places it into
// a kernel structure that guarantees termination if the warden dies without
// running its own cleanup.
//
// Stdin/stdout/stderr pipe wiring and Setpgid-based process-group
// containment, extended with Pdeathsig per spec.md §4.1.5.
package launcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/codex-run/warden/internal/jobentry"
	"github.com/codex-run/warden/internal/wardenerr"
)

// Child is the handle returned by Launch: a PID plus whatever is needed to
// wait for exit and tear the process down, sufficient for C2 (procutil) and
// C3 (cleanup.Guard) per spec.md §4.1's "Output" contract.
type Child struct {
	cmd       *exec.Cmd
	logFile   *os.File
	jobHandle uintptr // windows job object handle; always 0 on unix
}

// PID returns the spawned child's process identifier.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Wait blocks until the child exits and returns its exit code, mapping a
// signal-terminated exit to the platform-conventional 128+signal code
// (spec.md §4.7 S4, §6 "Exit codes").
func (c *Child) Wait() int {
	err := c.cmd.Wait()
	closeJobHandle(c.jobHandle)
	_ = c.logFile.Close()
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1
	}
	return exitStatusCode(exitErr)
}

// Launch resolves delegate on PATH, creates the log file for logID
// exclusively, and spawns delegate with args, wiring stdin passthrough and
// a combined stdout+stderr tee into the log file. Errors are wrapped in
// wardenerr.ErrSpawnFailed (missing binary or fork/exec failure) or
// wardenerr.ErrLogFileFailed (log file creation), per spec.md §7.
func Launch(delegate string, args []string, logID string, stdin io.Reader) (*Child, error) {
	resolved, err := exec.LookPath(delegate)
	if err != nil {
		return nil, fmt.Errorf("launcher: resolve delegate %q: %w: %w", delegate, wardenerr.ErrSpawnFailed, err)
	}

	logPath := jobentry.LogPath(logID)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("launcher: create log file %q: %w: %w", logPath, wardenerr.ErrLogFileFailed, err)
	}

	cmd := exec.Command(resolved, args...)
	cmd.Stdin = stdin
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("launcher: spawn %q: %w: %w", resolved, wardenerr.ErrSpawnFailed, err)
	}

	return &Child{
		cmd:       cmd,
		logFile:   logFile,
		jobHandle: afterStart(cmd.Process.Pid),
	}, nil
}

// CheckVersion runs `delegate --version` to completion. A non-nil error is
// always wardenerr.ErrDelegateUnavailable, per spec.md §7.
func CheckVersion(delegate string) error {
	resolved, err := exec.LookPath(delegate)
	if err != nil {
		return fmt.Errorf("launcher: resolve delegate %q: %w: %w", delegate, wardenerr.ErrDelegateUnavailable, err)
	}
	cmd := exec.Command(resolved, "--version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launcher: %q --version: %w: %w", resolved, wardenerr.ErrDelegateUnavailable, err)
	}
	return nil
}
