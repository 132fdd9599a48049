// Package wardenerr defines the sentinel error kinds that classify every
// failure warden can report, per the error-handling design in spec.md §7.
// Callers use errors.Is against the sentinels and fmt.Errorf("...: %w", ...)
// to attach context without losing the classification.
package wardenerr

import "errors"

var (
	// ErrDelegateUnavailable means `DELEGATE --version` failed or the
	// delegate binary could not be resolved on PATH.
	ErrDelegateUnavailable = errors.New("delegate unavailable")

	// ErrSpawnFailed means fork/exec (or CreateProcess) failed. No registry
	// entry is ever inserted for a run that fails at this stage.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrLogFileFailed means the per-run log file could not be created.
	// Treated as a SpawnFailed preamble failure per spec.md §7.
	ErrLogFileFailed = errors.New("log file creation failed")

	// ErrRegistryFailed means attach, put, or delete against the registry
	// failed.
	ErrRegistryFailed = errors.New("registry operation failed")
)
