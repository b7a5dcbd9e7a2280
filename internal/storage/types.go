package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("snapshot not found")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver        string
	Path          string
	BusyTimeout   time.Duration // sqlite only; 0 means default
	KeepSnapshots int           // per identity; 0 keeps all
}

// AuditEntry records one write to a crontab.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At         time.Time `json:"at"`
	Actor      string    `json:"actor,omitempty"`    // OS user running the tool
	Identity   string    `json:"identity,omitempty"` // crontab owner; "" = runtime user
	Action     string    `json:"action"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Entries    int       `json:"entries"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
}

// Snapshot is the crontab text as it was before a write.
type Snapshot struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Identity string    `json:"identity,omitempty"`
	Action   string    `json:"action"`
	Content  string    `json:"content"`
}
