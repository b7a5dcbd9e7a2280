package app

import (
	"context"
	"time"

	"crontabmgr/internal/diff"
	"crontabmgr/internal/storage"
	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

// Session is one load-edit-commit cycle over a Repository. Like the
// Repository it wraps, it has a single owner.
type Session struct {
	app  *App
	repo *crontab.Repository
	base string // live text the edits are based on
}

func (s *Session) Repository() *crontab.Repository { return s.repo }

// Base returns the text the session was loaded from.
func (s *Session) Base() string { return s.base }

// CommitResult describes one write.
type CommitResult struct {
	SnapshotID string
	Diff       diff.Result
	Entries    int
	Took       time.Duration
}

// Preview renders the pending text and diffs it against the base.
func (s *Session) Preview() (diff.Result, error) {
	return s.PreviewWith(diff.Options{Context: -1})
}

func (s *Session) PreviewWith(opt diff.Options) (diff.Result, error) {
	out, err := s.repo.Render()
	if err != nil {
		return diff.Result{}, err
	}
	return diff.LinesWith(s.base, out, opt), nil
}

// Commit snapshots the base text (when storage is enabled), persists the
// repository and appends an audit entry. The write always happens, even
// when nothing changed.
func (s *Session) Commit(ctx context.Context, action string) (CommitResult, error) {
	a := s.app
	start := a.now()
	res := CommitResult{Entries: s.repo.Len()}

	d, err := s.Preview()
	if err != nil {
		return res, err
	}
	res.Diff = d

	if a.store != nil {
		snap, err := a.store.PutSnapshot(ctx, storage.Snapshot{
			Identity: a.identity,
			Action:   action,
			Content:  s.base,
		})
		if err != nil {
			a.log.Error("snapshot failed; crontab not written", logx.String("action", action), logx.Err(err))
			return res, err
		}
		res.SnapshotID = snap.ID
	}

	perr := s.repo.Persist(ctx)
	res.Took = a.now().Sub(start)
	s.audit(ctx, action, res, perr)
	if perr != nil {
		a.log.Warn("crontab write failed", logx.String("action", action), logx.Err(perr))
		return res, perr
	}
	s.base = s.repo.Source()

	a.log.Info("crontab written",
		logx.String("action", action),
		logx.String("identity", a.identity),
		logx.Int("entries", res.Entries),
		logx.Int("added", d.Added),
		logx.Int("removed", d.Removed),
		logx.Duration("took", res.Took),
	)
	return res, nil
}

func (s *Session) audit(ctx context.Context, action string, res CommitResult, err error) {
	a := s.app
	if a.store == nil {
		return
	}
	e := storage.AuditEntry{
		At:         a.now().UTC(),
		Actor:      a.actor,
		Identity:   a.identity,
		Action:     action,
		SnapshotID: res.SnapshotID,
		Entries:    res.Entries,
		Added:      res.Diff.Added,
		Removed:    res.Diff.Removed,
		OK:         err == nil,
		TookMS:     res.Took.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if aerr := a.store.AppendAudit(ctx, e); aerr != nil {
		a.log.Warn("audit append failed", logx.String("action", action), logx.Err(aerr))
	}
}
