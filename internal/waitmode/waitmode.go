// Package waitmode implements Wait Mode (spec.md §4.8): blocks polling the
// registry, summarizes completed runs, enforces 12h stale eviction per
// round and a hard 24h overall bound.
package waitmode

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/codex-run/warden/internal/jobentry"
	"github.com/codex-run/warden/internal/registry"
)

// hardBound is the 24h deadline of spec.md §4.8 rule 2.
const hardBound = 24 * time.Hour

// running describes one entry still present in the registry, for the
// timeout summary.
type running struct {
	PID     int
	LogPath string
}

// Clock abstracts time so tests can shorten the 24h deadline and drive
// rounds without a real sleep, per spec.md §8 scenario 6's "test hook
// shortening the deadline to 1s".
type Clock struct {
	Now   func() time.Time
	Sleep func(time.Duration)
}

// realClock is the production Clock: wall-clock time.Now and time.Sleep.
func realClock() Clock {
	return Clock{Now: time.Now, Sleep: time.Sleep}
}

// Result is the outcome of Run: either the drained summary or the
// 24h-deadline summary, pre-rendered per spec.md §6.
type Result struct {
	// Drained is true if every entry finished before the deadline.
	Drained bool

	// Summary is the exact user-facing text to print on stdout.
	Summary string
}

// Run polls reg at interval until either the registry empties (drained) or
// hardBound elapses (deadline), per spec.md §4.8. Exit code is the caller's
// responsibility (spec.md §6: "Wait mode: always 0 except for internal
// fatal errors").
func Run(reg *registry.Registry, interval time.Duration, logger *slog.Logger) (Result, error) {
	return run(reg, interval, realClock(), logger)
}

// RunWithClock is Run with an injectable Clock, for tests.
func RunWithClock(reg *registry.Registry, interval time.Duration, clock Clock, logger *slog.Logger) (Result, error) {
	return run(reg, interval, clock, logger)
}

func run(reg *registry.Registry, interval time.Duration, clock Clock, logger *slog.Logger) (Result, error) {
	tStart := clock.Now()
	var finishedLogs []string
	prevValues := map[string]jobentry.Value{} // key -> value observed last round

	for {
		entries, err := reg.Snapshot()
		if err != nil {
			return Result{}, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

		curValues := make(map[string]jobentry.Value, len(entries))
		for _, e := range entries {
			if v, err := jobentry.Unmarshal(e.Value); err == nil {
				curValues[e.Key] = v
			}
		}

		// Entries present before, absent now: finished since last round.
		// Order: by removal-detection time (this round), then ascending key.
		var removedKeys []string
		for key := range prevValues {
			if _, stillPresent := curValues[key]; !stillPresent {
				removedKeys = append(removedKeys, key)
			}
		}
		sort.Strings(removedKeys)
		for _, key := range removedKeys {
			finishedLogs = append(finishedLogs, prevValues[key].LogPath)
		}

		if len(entries) == 0 {
			return Result{Drained: true, Summary: drainedSummary(finishedLogs)}, nil
		}

		if clock.Now().Sub(tStart) >= hardBound {
			return Result{Drained: false, Summary: deadlineSummary(entries)}, nil
		}

		// Stale eviction: age > 12h, deleted without joining finishedLogs, and
		// dropped from curValues so next round doesn't count it as "finished".
		for key, v := range curValues {
			if v.Stale() {
				logger.Debug("wait: evicting stale entry", slog.String("key", key), "reason", "timeout")
				_ = reg.Delete(key)
				delete(curValues, key)
			}
		}

		prevValues = curValues
		clock.Sleep(interval)
	}
}

// drainedSummary renders spec.md §6's exact completion template.
func drainedSummary(logPaths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "当前有 %d 个任务已完成，详见：\n", len(logPaths))
	for i, p := range logPaths {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	b.WriteString("请逐一查看日志并继续后续工作。\n")
	return b.String()
}

// deadlineSummary renders spec.md §6's 24h-deadline template, listing
// still-running (pid, log_path) pairs.
func deadlineSummary(entries []registry.Entry) string {
	var live []running
	for _, e := range entries {
		pid, ok := jobentry.ParsePID(e.Key)
		if !ok {
			continue
		}
		v, err := jobentry.Unmarshal(e.Value)
		if err != nil {
			continue
		}
		live = append(live, running{PID: pid, LogPath: v.LogPath})
	}
	sort.Slice(live, func(i, j int) bool { return live[i].PID < live[j].PID })

	var b strings.Builder
	fmt.Fprintf(&b, "等待已达 24 小时上限，仍有 %d 个任务在运行：\n", len(live))
	for i, r := range live {
		fmt.Fprintf(&b, "%d. pid=%d %s\n", i+1, r.PID, r.LogPath)
	}
	b.WriteString("请逐一查看日志并继续后续工作。\n")
	return b.String()
}
