package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "crontabmgr/pkg/logx"

	"github.com/google/uuid"
)

// Store is the persistence API used by the app layer.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// ListAudit returns the newest entries first.
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	// PutSnapshot stores s and returns it with ID and At filled in.
	PutSnapshot(ctx context.Context, s Snapshot) (Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	// ListSnapshots returns the newest snapshots of identity first.
	ListSnapshots(ctx context.Context, identity string, limit int) ([]Snapshot, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func prepareSnapshot(s Snapshot) Snapshot {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}
	return s
}

func prepareAudit(e AuditEntry) AuditEntry {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}
