// Package supervisor implements the Warden Supervisor (spec.md §4.7):
// orchestrates the startup sweep, child launch, registry registration, and
// final cleanup of a single passthrough invocation, propagating the
// delegate's exit code.
package supervisor

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/codex-run/warden/internal/cleanup"
	"github.com/codex-run/warden/internal/config"
	"github.com/codex-run/warden/internal/jobentry"
	"github.com/codex-run/warden/internal/launcher"
	"github.com/codex-run/warden/internal/registry"
	"github.com/codex-run/warden/internal/signalhook"
	"github.com/codex-run/warden/internal/sweep"
	"github.com/codex-run/warden/internal/wardenerr"
)

// Outcome is what the caller (cmd/warden/main.go) needs to decide the
// process exit code and any user-visible error message.
type Outcome struct {
	ExitCode int
	// UserError, if non-empty, must be printed to stderr before exiting.
	UserError string
}

// RunVersionCheck implements S0's no-argv branch (spec.md §4.7): run the
// startup sweep, then `DELEGATE --version`.
func RunVersionCheck(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) Outcome {
	if err := sweep.Run(reg, logger); err != nil {
		logger.Debug("sweep failed", slog.Any("error", err))
	}

	if err := launcher.CheckVersion(cfg.Delegate); err != nil {
		logger.Debug("version check failed", slog.Any("error", err))
		return Outcome{
			ExitCode:  1,
			UserError: fmt.Sprintf("warden: 无法运行 %s --version，委托程序不可用。", cfg.Delegate),
		}
	}
	return Outcome{ExitCode: 0}
}

// RunPassthrough implements S0(argv non-empty)→S4 (spec.md §4.7): sweep,
// prepare, spawn, register, supervise, finalize.
func RunPassthrough(cfg *config.Config, reg *registry.Registry, args []string, stdin io.Reader, logger *slog.Logger) Outcome {
	if err := sweep.Run(reg, logger); err != nil {
		logger.Debug("sweep failed", slog.Any("error", err))
	}

	// S1 Prepare: generate log_id, arm the Guard with a placeholder handle
	// before anything that could fail, so a panic or signal between here
	// and the real spawn still has a (currently inert) Guard installed.
	value := jobentry.New(os.Getpid())
	guard := cleanup.New(reg, "", 0)
	hook := signalhook.Install(guard, logger)
	defer hook.Stop()
	defer signalhook.RecoverPanic(guard, logger)

	// S2 Spawn.
	child, err := launcher.Launch(cfg.Delegate, args, value.LogID, stdin)
	if err != nil {
		logger.Debug("spawn failed", slog.Any("error", err))
		return Outcome{
			ExitCode:  1,
			UserError: fmt.Sprintf("warden: 启动 %s 失败：%v", cfg.Delegate, err),
		}
	}

	key := jobentry.Key(child.PID())
	guard.Rearm(key, child.PID())

	valueBytes, err := value.Marshal()
	if err != nil {
		guard.RunOnce()
		return Outcome{
			ExitCode:  1,
			UserError: fmt.Sprintf("warden: 内部错误：%v", err),
		}
	}
	if err := reg.Put(key, valueBytes); err != nil {
		err = fmt.Errorf("supervisor: put %s: %w: %w", key, wardenerr.ErrRegistryFailed, err)
		logger.Debug("registry put failed, terminating child", slog.Any("error", err))
		guard.RunOnce()
		return Outcome{
			ExitCode:  1,
			UserError: fmt.Sprintf("warden: 注册任务失败：%v", err),
		}
	}

	// S3 Supervise: block for child exit. The I/O pump is internal to
	// exec.Cmd (Stdout/Stderr already wired to the log file in Launch).
	exitCode := child.Wait()

	// S4 Finalize.
	guard.RunOnce()
	return Outcome{ExitCode: exitCode}
}
