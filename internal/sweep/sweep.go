// Package sweep implements the Startup Sweep (spec.md §4.6): reconciles the
// registry against live processes and the 12h age bound, unconditionally,
// before any spawn.
package sweep

import (
	"log/slog"

	"github.com/codex-run/warden/internal/jobentry"
	"github.com/codex-run/warden/internal/procutil"
	"github.com/codex-run/warden/internal/registry"
)

// Run executes one sweep pass over reg, per spec.md §4.6 steps 1-6. Every
// deletion is the idempotent registry.Delete, so the sweep is safe to race
// against concurrent warden peers. Removals are not surfaced to the user
// (spec.md §7 "SweepRemoval: not surfaced; logged to debug stream only").
func Run(reg *registry.Registry, logger *slog.Logger) error {
	entries, err := reg.Snapshot()
	if err != nil {
		return err
	}

	for _, e := range entries {
		pid, ok := jobentry.ParsePID(e.Key)
		if !ok {
			logger.Debug("sweep: unparseable key, deleting", slog.String("key", e.Key))
			_ = reg.Delete(e.Key)
			continue
		}

		v, err := jobentry.Unmarshal(e.Value)
		if err != nil {
			logger.Debug("sweep: malformed value, deleting", slog.Int("pid", pid))
			_ = reg.Delete(e.Key)
			continue
		}

		if v.Stale() {
			logger.Debug("sweep: entry exceeded age bound", slog.Int("pid", pid), "reason", "timeout")
			_ = reg.Delete(e.Key)
			continue
		}

		if !procutil.IsAlive(pid) {
			logger.Debug("sweep: pid no longer alive", slog.Int("pid", pid), "reason", "exited")
			_ = reg.Delete(e.Key)
			continue
		}

		ppid, havePPID := procutil.ParentOf(pid)
		if havePPID && ppid != v.ManagerPID && !procutil.IsAlive(v.ManagerPID) {
			logger.Debug("sweep: orphaned child of a dead manager", slog.Int("pid", pid), "reason", "orphan")
			_ = procutil.Terminate(pid)
			_ = reg.Delete(e.Key)
			continue
		}

		// Still owned by a live warden instance; leave it alone.
	}

	return nil
}
