package registry_test

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/codex-run/warden/internal/registry"
)

func openTest(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codex-task.shm")
	// A much smaller region than the production 4 MiB keeps tests fast; the
	// slot-table logic is size-independent.
	r, err := registry.Open(path, 64*1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPutGetRoundTrip(t *testing.T) {
	r := openTest(t)

	if err := r.Put("1234", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, ok, err := r.Get("1234")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get: expected ok=true")
	}
	if string(v) != `{"a":1}` {
		t.Errorf("Get value = %q", v)
	}
}

func TestGetAbsentKey(t *testing.T) {
	r := openTest(t)
	_, ok, err := r.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get: expected ok=false for absent key")
	}
}

func TestPutOverwrite(t *testing.T) {
	r := openTest(t)
	if err := r.Put("k", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put("k", []byte("v2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, _ := r.Get("k")
	if !ok || string(v) != "v2" {
		t.Errorf("Get = (%q, %t), want (\"v2\", true)", v, ok)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	r := openTest(t)
	if err := r.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete("k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, ok, _ := r.Get("k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestDeleteAbsentKeyIsNotAnError(t *testing.T) {
	r := openTest(t)
	if err := r.Delete("never-existed"); err != nil {
		t.Errorf("Delete of absent key returned error: %v", err)
	}
}

// TestDeleteDoesNotBreakProbeChainForLaterKeys is the regression test for
// the classic open-addressing bug: deleting a slot must leave a tombstone,
// not a hard stop, or a later key hashed into the same bucket and inserted
// further along the probe chain becomes unreachable.
func TestDeleteDoesNotBreakProbeChainForLaterKeys(t *testing.T) {
	r := openTest(t)

	// A 64 KiB region has 15 slots. "100".."107" hash to 8 distinct start
	// slots; "111" hashes to the same start slot as "100", so it is inserted
	// further along the probe chain that passes through "100"'s slot. We
	// verify every key survives a Delete of the first key.
	keys := []string{"100", "101", "102", "103", "104", "105", "106", "107", "111"}
	for _, k := range keys {
		if err := r.Put(k, []byte(k)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	// Delete the first key, then verify every other key is still reachable.
	if err := r.Delete(keys[0]); err != nil {
		t.Fatalf("Delete(%s): %v", keys[0], err)
	}

	for _, k := range keys[1:] {
		v, ok, err := r.Get(k)
		if err != nil {
			t.Fatalf("Get(%s): %v", k, err)
		}
		if !ok || string(v) != k {
			t.Errorf("Get(%s) = (%q, %t), want (%q, true) after unrelated delete", k, v, ok, k)
		}
	}
}

func TestSnapshot(t *testing.T) {
	r := openTest(t)
	want := map[string]string{"1": "a", "2": "b", "3": "c"}
	for k, v := range want {
		if err := r.Put(k, []byte(v)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	entries, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	got := map[string]string{}
	for _, e := range entries {
		got[e.Key] = string(e.Value)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("entry %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestPutKeyTooLong(t *testing.T) {
	r := openTest(t)
	longKey := make([]byte, 64)
	for i := range longKey {
		longKey[i] = 'x'
	}
	if err := r.Put(string(longKey), []byte("v")); err != registry.ErrKeyTooLong {
		t.Errorf("Put with long key: err = %v, want ErrKeyTooLong", err)
	}
}

func TestPutValueTooLong(t *testing.T) {
	r := openTest(t)
	longVal := make([]byte, 8192)
	if err := r.Put("k", longVal); err != registry.ErrValueTooLong {
		t.Errorf("Put with long value: err = %v, want ErrValueTooLong", err)
	}
}

func TestPutFullNamespaceFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex-task.shm")
	// A small region: header + a handful of slots.
	r, err := registry.Open(path, 64*1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	// Fill every slot; 64KiB/4096 ≈ 15 usable slots.
	i := 0
	for {
		err := r.Put(strconv.Itoa(i), []byte("v"))
		if err == registry.ErrFull {
			break
		}
		if err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
		i++
		if i > 10000 {
			t.Fatal("registry never reported ErrFull")
		}
	}
}

func TestReopenSharesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex-task.shm")
	r1, err := registry.Open(path, 64*1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r1.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := registry.Open(path, 64*1024)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer r2.Close()

	v, ok, err := r2.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(v) != "v" {
		t.Errorf("Get after reopen = (%q, %t), want (\"v\", true)", v, ok)
	}
}
