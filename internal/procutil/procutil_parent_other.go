//go:build !linux && !darwin && !windows

package procutil

// parentOf has no portable implementation on this platform. Per spec.md
// Design Notes §9: "on hosts where this is unavailable, implementations may
// skip the orphan kill and rely on age-based eviction alone."
func parentOf(int) (int, bool) {
	return 0, false
}
