package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "crontabmgr/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl     (append-only JSON Lines)
//   - <prefix>.snapshots.jsonl (append-only, compacted when pruning)
//
// Snapshots are indexed in memory on open.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditPath string
	auditFile *os.File

	snapPath  string
	snapFile  *os.File
	snapshots []Snapshot // oldest first
	keep      int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	snapPath := prefix + ".snapshots.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	snaps, err := readSnapshots(snapPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = af.Close()
		return nil, err
	}

	sf, err := os.OpenFile(snapPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:       log,
		auditPath: auditPath,
		auditFile: af,
		snapPath:  snapPath,
		snapFile:  sf,
		snapshots: snaps,
		keep:      cfg.KeepSnapshots,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.snapFile != nil {
		err2 = s.snapFile.Close()
		s.snapFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(prepareAudit(e))
}

func (s *fileStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil, errors.New("audit file closed")
	}
	f, err := os.Open(s.auditPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []AuditEntry
	err = scanJSONL(f, func(b []byte) {
		var e AuditEntry
		if json.Unmarshal(b, &e) == nil {
			out = append(out, e)
		}
	})
	if err != nil {
		return nil, err
	}
	reverse(out)
	return truncate(out, limit), nil
}

func (s *fileStore) PutSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	_ = ctx
	snap = prepareSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapFile == nil {
		return Snapshot{}, errors.New("snapshot file closed")
	}
	if err := json.NewEncoder(s.snapFile).Encode(snap); err != nil {
		return Snapshot{}, err
	}
	s.snapshots = append(s.snapshots, snap)

	if s.keep > 0 && s.countLocked(snap.Identity) > s.keep {
		// Best-effort compact.
		if err := s.compactLocked(snap.Identity); err != nil {
			s.log.Debug("snapshot compact failed", logx.Err(err))
		}
	}
	return snap, nil
}

func (s *fileStore) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	_ = ctx
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].ID == id {
			return s.snapshots[i], nil
		}
	}
	return Snapshot{}, ErrNotFound
}

func (s *fileStore) ListSnapshots(ctx context.Context, identity string, limit int) ([]Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Snapshot
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].Identity == identity {
			out = append(out, s.snapshots[i])
		}
	}
	return truncate(out, limit), nil
}

func (s *fileStore) countLocked(identity string) int {
	n := 0
	for _, sn := range s.snapshots {
		if sn.Identity == identity {
			n++
		}
	}
	return n
}

// compactLocked drops the oldest snapshots of identity beyond keep and
// rewrites the snapshot file.
func (s *fileStore) compactLocked(identity string) error {
	drop := s.countLocked(identity) - s.keep
	kept := s.snapshots[:0:0]
	for _, sn := range s.snapshots {
		if sn.Identity == identity && drop > 0 {
			drop--
			continue
		}
		kept = append(kept, sn)
	}

	tmp := s.snapPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, sn := range kept {
		if err := enc.Encode(sn); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapPath); err != nil {
		return err
	}
	// Reopen: the old handle points at the replaced inode.
	_ = s.snapFile.Close()
	sf, err := os.OpenFile(s.snapPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		s.snapFile = nil
		return err
	}
	s.snapFile = sf
	s.snapshots = kept
	return nil
}

func readSnapshots(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Snapshot
	err = scanJSONL(f, func(b []byte) {
		var sn Snapshot
		if json.Unmarshal(b, &sn) != nil || sn.ID == "" {
			return
		}
		out = append(out, sn)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, err
}

func scanJSONL(r io.Reader, fn func([]byte)) error {
	sc := bufio.NewScanner(r)
	// Snapshots carry whole crontabs.
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		fn(sc.Bytes())
	}
	return sc.Err()
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
