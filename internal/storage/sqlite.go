package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "crontabmgr/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db   *sql.DB
	log  logx.Logger
	keep int
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, keep: cfg.KeepSnapshots}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	e = prepareAudit(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor, identity, action, snapshot_id, entries, added, removed, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.Actor), e.Identity, e.Action, nullStr(e.SnapshotID),
		e.Entries, e.Added, e.Removed, boolInt(e.OK), nullStr(e.Error), e.TookMS,
	)
	return err
}

func (s *sqliteStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, actor, identity, action, snapshot_id, entries, added, removed, ok, err, took_ms
		 FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                     AuditEntry
			at                    string
			actor, snapID, errStr sql.NullString
			ok                    int
		)
		if err := rows.Scan(&at, &actor, &e.Identity, &e.Action, &snapID, &e.Entries, &e.Added, &e.Removed, &ok, &errStr, &e.TookMS); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Actor, e.SnapshotID, e.Error = actor.String, snapID.String, errStr.String
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PutSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, ErrDisabled
	}
	snap = prepareSnapshot(snap)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots(id, at, identity, action, content) VALUES(?,?,?,?,?)`,
		snap.ID, snap.At.Format(time.RFC3339Nano), snap.Identity, snap.Action, snap.Content,
	)
	if err != nil {
		return Snapshot{}, err
	}
	if s.keep > 0 {
		if err := s.prune(ctx, snap.Identity); err != nil {
			s.log.Debug("snapshot prune failed", logx.Err(err))
		}
	}
	return snap, nil
}

func (s *sqliteStore) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, ErrDisabled
	}
	var (
		sn Snapshot
		at string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, at, identity, action, content FROM snapshots WHERE id = ?`, strings.TrimSpace(id),
	).Scan(&sn.ID, &at, &sn.Identity, &sn.Action, &sn.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	sn.At, _ = time.Parse(time.RFC3339Nano, at)
	return sn, nil
}

func (s *sqliteStore) ListSnapshots(ctx context.Context, identity string, limit int) ([]Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, identity, action, content FROM snapshots
		 WHERE identity = ? ORDER BY seq DESC LIMIT ?`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			sn Snapshot
			at string
		)
		if err := rows.Scan(&sn.ID, &at, &sn.Identity, &sn.Action, &sn.Content); err != nil {
			return nil, err
		}
		sn.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *sqliteStore) prune(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE identity = ? AND seq NOT IN (
			SELECT seq FROM snapshots WHERE identity = ? ORDER BY seq DESC LIMIT ?
		)`, identity, identity, s.keep)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
