// Package signalhook implements the Signal & Panic Hook (spec.md §4.5):
// routes asynchronous termination and uncaught panics into a
// *cleanup.Guard, then lets the process terminate with its
// platform-conventional disposition.
//
// Listens for SIGINT, SIGTERM, and SIGHUP and re-raises the default
// disposition after cleanup runs, per spec.md §4.5, so the warden itself
// terminates with a signal-conventional exit status rather than swallowing
// the signal.
package signalhook

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/codex-run/warden/internal/cleanup"
)

// Hook installs the process-wide signal handler exactly once (spec.md §9:
// "install them once, before any spawn... the warden is not re-entrant
// within a single process").
type Hook struct {
	guard  *cleanup.Guard
	logger *slog.Logger

	sigCh chan os.Signal
	done  chan struct{}
	stop  sync.Once
}

// Install registers the handler for SIGINT, SIGTERM, and SIGHUP and starts
// the goroutine that waits for delivery. Call before spawning the child.
func Install(guard *cleanup.Guard, logger *slog.Logger) *Hook {
	h := &Hook{
		guard:  guard,
		logger: logger,
		sigCh:  make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go h.run()
	return h
}

// run is the dedicated signal-handling goroutine. The actual handler
// registered with the OS only sets a flag and wakes this goroutine (the
// channel send done internally by the os/signal package); all real work —
// including anything that can block or allocate — happens here, off the
// signal-delivery path.
func (h *Hook) run() {
	select {
	case sig, ok := <-h.sigCh:
		if !ok {
			return
		}
		h.logger.Debug("signal received, running cleanup guard", slog.String("signal", sig.String()))
		h.guard.RunOnce()
		// reraise is platform-specific: see hook_unix.go / hook_windows.go.
		h.reraise(sig)
	case <-h.done:
	}
}

// Stop disarms the hook without re-raising anything, used once the
// supervisor has reached a normal exit path and no longer needs the
// handler armed.
func (h *Hook) Stop() {
	h.stop.Do(func() {
		signal.Stop(h.sigCh)
		close(h.done)
	})
}

// RecoverPanic runs the Cleanup Guard then re-panics with the original
// value, per spec.md §4.5's panic hook contract ("invoke the Cleanup Guard,
// then allow the normal abort path"). Call as `defer signalhook.RecoverPanic(guard, logger)`
// in the function that owns the guard (supervisor.RunPassthrough).
func RecoverPanic(guard *cleanup.Guard, logger *slog.Logger) {
	if r := recover(); r != nil {
		logger.Error("panic recovered, running cleanup guard before re-panicking", slog.Any("panic", r))
		guard.RunOnce()
		panic(r)
	}
}
