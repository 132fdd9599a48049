//go:build windows

package signalhook

import (
	"os"
	"os/signal"
)

// reraise restores sig's default disposition and terminates the process.
// syscall.Kill has no Windows implementation, and there is no "re-send this
// signal to myself" primitive for a console-close/logoff/shutdown event
// once it has been handled: the caller (run) has already invoked the
// Cleanup Guard, so the only remaining obligation is to not linger.
func (h *Hook) reraise(sig os.Signal) {
	signal.Reset(sig)
	os.Exit(1)
}
