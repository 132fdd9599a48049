// Package jobentry defines the JSON value stored under each registry.Entry
// key, per spec.md §3: a daemon registry keyed by PID with a `started_at`
// timestamp field.
package jobentry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StaleAge is the age bound of invariant I4: no entry is retained longer
// than 12 hours of wall-clock time since StartedAt.
const StaleAge = 12 * time.Hour

// Value is the JSON value half of a registry entry. Forward compatibility
// per spec.md §3: Unmarshal ignores unknown fields (encoding/json already
// does this), and Marshal never omits a required field.
type Value struct {
	StartedAt     time.Time `json:"started_at"`
	LogID         string    `json:"log_id"`
	LogPath       string    `json:"log_path"`
	ManagerPID    int       `json:"manager_pid"`
	CleanupReason string    `json:"cleanup_reason,omitempty"`
}

// New builds a Value for a freshly spawned child owned by managerPID,
// generating a fresh log_id (a google/uuid v4, canonical lowercase
// 8-4-4-4-12 form) and deriving log_path from it per spec.md §3.
func New(managerPID int) Value {
	id := uuid.New().String()
	return Value{
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		LogID:      id,
		LogPath:    LogPath(id),
		ManagerPID: managerPID,
	}
}

// LogPath returns the combined-output log path for a given log_id, the
// "{system_temp_dir}/{log_id}.txt" form required by spec.md §3/§6.
func LogPath(logID string) string {
	return filepath.Join(os.TempDir(), logID+".txt")
}

// Age reports how long ago StartedAt was, for sweep/wait-mode eviction.
func (v Value) Age() time.Duration {
	return time.Since(v.StartedAt)
}

// Stale reports whether v has outlived StaleAge (invariant I4).
func (v Value) Stale() bool {
	return v.Age() > StaleAge
}

// Marshal encodes v as compact JSON.
func (v Value) Marshal() ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jobentry: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a registry value. A malformed started_at fails decoding
// and the encoding/json error is returned wrapped; a missing started_at
// decodes as the zero time, which Stale then reports as stale.
func Unmarshal(b []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(b, &v); err != nil {
		return Value{}, fmt.Errorf("jobentry: unmarshal: %w", err)
	}
	return v, nil
}

// ParsePID parses a registry key as a decimal PID, per spec.md §4.6 step 1.
func ParsePID(key string) (int, bool) {
	pid, err := strconv.Atoi(key)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Key renders pid as the decimal-string registry key.
func Key(pid int) string {
	return strconv.Itoa(pid)
}
