// Package registry implements the cross-process, server-less key/value store
// described in spec.md §4.2: a single fixed-size shared memory region,
// attached by every warden instance under the namespace "codex-task",
// serializing individual operations with an advisory file lock.
//
// There is no kernel shared-memory primitive in pure Go, so the region is
// backed by a regular file mmap'd MAP_SHARED — the same mechanism the
// teacher's eBPF ring-buffer reader uses for its control and data pages
// (internal/watcher/ebpf/loader_linux.go), just with a flat slot table
// instead of a producer/consumer ring. Every peer that calls Open maps the
// same file, so writes become visible to other processes as soon as the
// underlying pages are flushed by the kernel — no explicit sync call is
// needed for MAP_SHARED mappings of a regular file.
package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Namespace is the fixed shared-memory namespace name required by spec.md
// invariant I5.
const Namespace = "codex-task"

// Size is the fixed backing size required by spec.md invariant I5.
const Size = 4 * 1024 * 1024 // 4 MiB

const (
	magic      = uint32(0x434f4458) // "CODX"
	formatVers = uint32(1)

	headerSize = 64
	slotSize   = 4096
	maxKeyLen  = 32
	maxValLen  = slotSize - slotHeaderLen - maxKeyLen

	// slotHeaderLen: occupied(1) + keyLen(2) + valLen(2) + reserved(3), kept
	// 8-byte aligned for clean offsets.
	slotHeaderLen = 8
)

var (
	// ErrKeyTooLong is returned by Put when key exceeds maxKeyLen bytes.
	ErrKeyTooLong = errors.New("registry: key too long")
	// ErrValueTooLong is returned by Put when value exceeds the per-slot
	// capacity.
	ErrValueTooLong = errors.New("registry: value too long")
	// ErrFull is returned by Put when no free slot remains — "capacity
	// exhaustion fails loudly" per spec.md §4.2.
	ErrFull = errors.New("registry: namespace full")
)

// Entry is a single (key, value) pair returned by Snapshot.
type Entry struct {
	Key   string
	Value []byte
}

// Registry is a handle to the attached "codex-task" shared-memory namespace.
// A Registry is safe for concurrent use from multiple goroutines in this
// process; cross-process safety is provided by the advisory lock taken
// around every operation.
type Registry struct {
	path string
	file *os.File
	data []byte // mmap'd region, len == Size
	nslot int
	mu    sync.Mutex // serializes goroutines of this process; the file lock alone does not
}

// DefaultPath returns the registry's backing file path under the host's
// temp directory, namespaced so unrelated tmp cleanup never collides with
// an unrelated file of the same name.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), Namespace+".shm")
}

// Open attaches to the namespace at path, creating and zero-initializing it
// if absent. size must match on all peers (spec.md §4.2); passing a size
// other than registry.Size is supported only for tests that need a smaller
// region.
func Open(path string, size int) (*Registry, error) {
	if size < headerSize+slotSize {
		return nil, fmt.Errorf("registry: size %d too small for even one slot", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("registry: open %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("registry: stat %q: %w", path, err)
	}
	if info.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("registry: truncate %q to %d: %w", path, size, err)
		}
	}

	data, err := mapFile(f, size)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("registry: mmap %q: %w", path, err)
	}

	r := &Registry{
		path:  path,
		file:  f,
		data:  data,
		nslot: (size - headerSize) / slotSize,
	}

	if err := r.withLock(func() error { return r.ensureHeader() }); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// ensureHeader writes the magic/version header if the file was just
// created (all-zero), or validates it otherwise. Must be called with the
// lock held.
func (r *Registry) ensureHeader() error {
	got := binary.LittleEndian.Uint32(r.data[0:4])
	if got == 0 {
		binary.LittleEndian.PutUint32(r.data[0:4], magic)
		binary.LittleEndian.PutUint32(r.data[4:8], formatVers)
		return nil
	}
	if got != magic {
		return fmt.Errorf("registry: %q has an unrecognized header (got %#x)", r.path, got)
	}
	return nil
}

// Close unmaps the region and closes the backing file. It does not delete
// the backing file: other warden instances may still be attached.
func (r *Registry) Close() error {
	var errs []error
	if err := unmapFile(r.data); err != nil {
		errs = append(errs, err)
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Registry) withLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := lockFile(r.file); err != nil {
		return fmt.Errorf("registry: lock: %w", err)
	}
	defer unlockFile(r.file)
	return fn()
}

func (r *Registry) slotOffset(i int) int {
	return headerSize + i*slotSize
}

// Slot states. A probe sequence must continue through both stateOccupied
// and stateTombstone slots (a prior Delete must not truncate the probe
// chain for a key inserted before the deletion) and only stops at a
// stateEmpty slot that has never been written.
const (
	stateEmpty     = 0
	stateOccupied  = 1
	stateTombstone = 2
)

// readSlot decodes the slot at index i, returning its state byte.
func (r *Registry) readSlot(i int) (state byte, key string, value []byte) {
	off := r.slotOffset(i)
	hdr := r.data[off : off+slotHeaderLen]
	state = hdr[0]
	if state != stateOccupied {
		return state, "", nil
	}
	keyLen := int(binary.LittleEndian.Uint16(hdr[1:3]))
	valLen := int(binary.LittleEndian.Uint16(hdr[3:5]))

	body := r.data[off+slotHeaderLen : off+slotSize]
	key = string(body[:keyLen])
	value = make([]byte, valLen)
	copy(value, body[maxKeyLen:maxKeyLen+valLen])
	return state, key, value
}

func (r *Registry) writeSlot(i int, key string, value []byte) {
	off := r.slotOffset(i)
	hdr := r.data[off : off+slotHeaderLen]

	body := r.data[off+slotHeaderLen : off+slotSize]
	// Clear the full key region so a shorter overwrite doesn't leave stale
	// trailing bytes from a previous longer key.
	for i := range body[:maxKeyLen] {
		body[i] = 0
	}
	copy(body[:maxKeyLen], key)
	copy(body[maxKeyLen:maxKeyLen+len(value)], value)

	// The state byte flips to occupied only after the body is written, so a
	// concurrent reader under the same lock never observes a torn entry.
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(key)))
	binary.LittleEndian.PutUint16(hdr[3:5], uint16(len(value)))
	hdr[5], hdr[6], hdr[7] = 0, 0, 0
	hdr[0] = stateOccupied
}

func (r *Registry) clearSlot(i int) {
	off := r.slotOffset(i)
	r.data[off] = stateTombstone
}

func (r *Registry) slotIndex(key string) int {
	h := fnv32(key)
	return int(h % uint32(r.nslot))
}

// Put inserts or overwrites key's value. Whole-entry visibility is
// guaranteed: a concurrent reader under the same lock never observes a
// torn write, because the header byte that marks a slot occupied is only
// flipped on after the key/value bytes are written.
func (r *Registry) Put(key string, value []byte) error {
	if len(key) > maxKeyLen {
		return ErrKeyTooLong
	}
	if len(value) > maxValLen {
		return ErrValueTooLong
	}

	return r.withLock(func() error {
		start := r.slotIndex(key)
		firstFree := -1
		for probe := 0; probe < r.nslot; probe++ {
			i := (start + probe) % r.nslot
			state, k, _ := r.readSlot(i)
			switch state {
			case stateEmpty:
				// The probe chain for this key ends here: if key were
				// present it would have been inserted no later than this
				// slot. Use the first tombstone/empty slot seen so far.
				if firstFree == -1 {
					firstFree = i
				}
				r.writeSlot(firstFree, key, value)
				return nil
			case stateTombstone:
				if firstFree == -1 {
					firstFree = i
				}
			case stateOccupied:
				if k == key {
					r.writeSlot(i, key, value)
					return nil
				}
			}
		}
		if firstFree == -1 {
			return ErrFull
		}
		r.writeSlot(firstFree, key, value)
		return nil
	})
}

// Get returns the current value for key, or ok == false if absent.
func (r *Registry) Get(key string) (value []byte, ok bool, err error) {
	err = r.withLock(func() error {
		start := r.slotIndex(key)
		for probe := 0; probe < r.nslot; probe++ {
			i := (start + probe) % r.nslot
			state, k, v := r.readSlot(i)
			if state == stateEmpty {
				return nil
			}
			if state == stateOccupied && k == key {
				value, ok = v, true
				return nil
			}
		}
		return nil
	})
	return value, ok, err
}

// Delete removes key if present. Absence is not an error (idempotent), per
// spec.md §4.2.
func (r *Registry) Delete(key string) error {
	return r.withLock(func() error {
		start := r.slotIndex(key)
		for probe := 0; probe < r.nslot; probe++ {
			i := (start + probe) % r.nslot
			state, k, _ := r.readSlot(i)
			if state == stateEmpty {
				return nil
			}
			if state == stateOccupied && k == key {
				r.clearSlot(i)
				return nil
			}
		}
		return nil
	})
}

// Snapshot returns a point-in-time copy of every (key, value) pair. The
// lock is held only while copying slot bytes, never while the caller
// processes the returned slice — "iteration must not require holding a
// lock across user code" (spec.md §4.2).
func (r *Registry) Snapshot() ([]Entry, error) {
	var out []Entry
	err := r.withLock(func() error {
		for i := 0; i < r.nslot; i++ {
			state, k, v := r.readSlot(i)
			if state == stateOccupied {
				out = append(out, Entry{Key: k, Value: v})
			}
		}
		return nil
	})
	return out, err
}

// fnv32 is a tiny inline FNV-1a hash, avoiding a dependency on hash/fnv for
// a single uint32 digest used only to pick a probe start index.
func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
