// Package cleanup implements the idempotent Cleanup Guard (spec.md §4.4):
// terminate the owned child, then erase its registry entry, exactly once,
// invoked from every exit path (normal return, error, panic, signal).
//
// A single guarded shutdown func, protected by sync.Once, run from both the
// normal return path and the signal-handling goroutine.
package cleanup

import (
	"sync"

	"github.com/codex-run/warden/internal/procutil"
	"github.com/codex-run/warden/internal/registry"
)

// Guard is armed at registration time with (registry_key, child PID) and
// exposes a single idempotent RunOnce operation. Neither the registry handle
// nor the child PID is owned by the Guard; per spec.md §9 "Cyclic ownership
// avoided", the supervisor owns both the Guard and the resources it
// references.
type Guard struct {
	once sync.Once

	reg *registry.Registry
	key string
	pid int
}

// New arms a Guard for the child identified by pid, keyed under key in reg.
// A Guard with pid == 0 and key == "" is valid and inert (S1's placeholder
// arming before the real PID is known); RunOnce on it terminates nothing and
// deletes nothing, it only consumes the Guard.
func New(reg *registry.Registry, key string, pid int) *Guard {
	return &Guard{reg: reg, key: key, pid: pid}
}

// Rearm replaces the (key, pid) pair on a not-yet-run Guard. Used by S2
// (spec.md §4.7) to swap the placeholder handle for the real spawned child
// once the spawn succeeds. Rearming after RunOnce has fired is a no-op: the
// Guard is already consumed.
func (g *Guard) Rearm(key string, pid int) {
	g.key = key
	g.pid = pid
}

// RunOnce attempts to terminate the child then delete its registry entry.
// Both steps ignore their own errors (spec.md §4.4: "the child may already
// have exited"); only the first call has any effect. Termination happens
// before deletion so a peer observing the entry mid-cleanup still sees a
// valid manager_pid→process relationship until the entry vanishes.
func (g *Guard) RunOnce() {
	g.once.Do(func() {
		if g.pid > 0 {
			_ = procutil.Terminate(g.pid)
		}
		if g.reg != nil && g.key != "" {
			_ = g.reg.Delete(g.key)
		}
	})
}
