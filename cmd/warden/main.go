// Command warden is a transparent supervisor for an external delegate CLI
// binary. It launches the delegate, forwards argv and stdin verbatim, tees
// combined output to a per-run log file, and maintains a cross-process
// registry entry describing the run so that a companion `wait` invocation
// can poll for completion. Every exit path — normal, error, signal, or
// panic — guarantees the delegate is terminated and its registry entry is
// removed.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/codex-run/warden/internal/config"
	"github.com/codex-run/warden/internal/launcher"
	"github.com/codex-run/warden/internal/registry"
	"github.com/codex-run/warden/internal/supervisor"
	"github.com/codex-run/warden/internal/waitmode"
	"github.com/codex-run/warden/internal/wardenerr"
	"github.com/codex-run/warden/internal/wardlog"
)

func main() {
	os.Exit(run())
}

// run dispatches on argv (spec.md §6): no args runs a version check,
// "wait" enters wait mode, anything else is passthrough to the delegate.
func run() int {
	launcher.EnableConsoleVT()

	cfg := config.Load()
	logger := wardlog.New(cfg.DebugEnable)
	slog.SetDefault(logger)

	reg, err := registry.Open(registry.DefaultPath(), registry.Size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: 无法打开共享注册表：%v\n", fmt.Errorf("%w: %w", wardenerr.ErrRegistryFailed, err))
		return 1
	}
	defer reg.Close()

	args := os.Args[1:]

	switch {
	case len(args) == 0:
		out := supervisor.RunVersionCheck(cfg, reg, logger)
		return report(out)

	case len(args) == 1 && args[0] == "wait":
		return runWait(cfg, reg, logger)

	default:
		out := supervisor.RunPassthrough(cfg, reg, args, os.Stdin, logger)
		return report(out)
	}
}

func runWait(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) int {
	interval := time.Duration(cfg.WaitIntervalSec) * time.Second
	result, err := waitmode.Run(reg, interval, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: 等待模式内部错误：%v\n", err)
		return 1
	}
	fmt.Print(result.Summary)
	return 0
}

func report(out supervisor.Outcome) int {
	if out.UserError != "" {
		fmt.Fprintln(os.Stderr, out.UserError)
	}
	return out.ExitCode
}
