package procutil_test

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/codex-run/warden/internal/procutil"
)

func TestIsAliveSelf(t *testing.T) {
	if !procutil.IsAlive(os.Getpid()) {
		t.Fatal("IsAlive(self) = false, want true")
	}
}

func TestIsAliveNonexistentPID(t *testing.T) {
	// A PID astronomically unlikely to exist on any test host.
	if procutil.IsAlive(1 << 30) {
		t.Fatal("IsAlive(huge pid) = true, want false")
	}
}

func TestTerminateAndIsAlive(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start test subprocess: %v", err)
	}
	pid := cmd.Process.Pid

	if !procutil.IsAlive(pid) {
		t.Fatal("IsAlive(child) = false immediately after Start")
	}

	if err := procutil.Terminate(pid); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit within 5s of Terminate")
	}

	if procutil.IsAlive(pid) {
		t.Error("IsAlive(child) = true after Terminate and Wait")
	}
}

func TestTerminateIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start test subprocess: %v", err)
	}
	pid := cmd.Process.Pid
	defer cmd.Wait()

	if err := procutil.Terminate(pid); err != nil {
		t.Fatalf("first Terminate: %v", err)
	}
	cmd.Wait()
	if err := procutil.Terminate(pid); err != nil {
		t.Errorf("second Terminate on exited pid returned error: %v", err)
	}
}

func TestParentOfSelf(t *testing.T) {
	ppid, ok := procutil.ParentOf(os.Getpid())
	if !ok {
		t.Skip("ParentOf unavailable on this platform")
	}
	if ppid != os.Getppid() {
		t.Errorf("ParentOf(self) = %d, want %d", ppid, os.Getppid())
	}
}
