//go:build unix

package registry

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps size bytes of f MAP_SHARED so writes are visible to every
// other process that maps the same file, applied here to a flat slot
// table instead of a ring buffer.
func mapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}

// lockFile takes an exclusive advisory lock on the whole file, serializing
// registry operations across every process attached to the namespace.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
