//go:build unix

package signalhook

import (
	"os"
	"os/signal"
	"syscall"
)

// reraise restores sig's default disposition and re-sends it to this
// process via kill(2), so the warden's own exit status is the platform-
// conventional one for that signal rather than being silently absorbed.
func (h *Hook) reraise(sig os.Signal) {
	signal.Reset(sig)
	_ = syscall.Kill(os.Getpid(), sig.(syscall.Signal))
}
