package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"crontabmgr/internal/config"
	"crontabmgr/internal/storage"
	"crontabmgr/pkg/cronsvc"
	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

// ErrNoStore is returned by history and restore operations when storage is
// disabled.
var ErrNoStore = errors.New("storage is disabled (set storage.driver)")

type StatusFunc func(ctx context.Context, units []string) ([]cronsvc.UnitStatus, error)

type Option func(*App)

// WithTransport replaces the configured transport (tests, dry runs).
func WithTransport(t crontab.Transport, identity string) Option {
	return func(a *App) {
		a.transport = t
		a.identity = identity
	}
}

// WithStore replaces the configured store.
func WithStore(s storage.Store) Option {
	return func(a *App) { a.store = s }
}

func WithStatusFunc(fn StatusFunc) Option {
	return func(a *App) { a.status = fn }
}

// App ties the crontab transport, the optional audit store and the daemon
// status probe together for one configured crontab.
type App struct {
	cfg *config.Config
	log logx.Logger

	transport crontab.Transport
	identity  string
	store     storage.Store
	stray     crontab.StrayLinePolicy
	status    StatusFunc
	actor     string
	now       func() time.Time
}

func New(cfg *config.Config, log logx.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	a := &App{
		cfg:    cfg,
		log:    log.With(logx.String("comp", "app")),
		stray:  cfg.StrayPolicy(),
		status: cronsvc.Status,
		actor:  currentActor(),
		now:    time.Now,
	}
	for _, o := range opts {
		if o != nil {
			o(a)
		}
	}

	if a.transport == nil {
		t, id, err := mapTransport(cfg, log.With(logx.String("comp", "transport")))
		if err != nil {
			return nil, err
		}
		a.transport, a.identity = t, id
	}

	if a.store == nil {
		sc, enabled, err := mapStorageConfig(cfg)
		if err != nil {
			return nil, err
		}
		if enabled {
			st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
			if err != nil {
				return nil, err
			}
			a.store = st
			a.log.Debug("storage enabled", logx.String("driver", sc.Driver))
		}
	}
	return a, nil
}

func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) Identity() string             { return a.identity }
func (a *App) Store() storage.Store         { return a.store }
func (a *App) Logger() logx.Logger          { return a.log }
func (a *App) Transport() crontab.Transport { return a.transport }

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) repoOptions() []crontab.Option {
	return []crontab.Option{
		crontab.WithStrayLines(a.stray),
		crontab.WithLogger(a.log.With(logx.String("comp", "crontab"))),
	}
}

// Open loads the live crontab.
func (a *App) Open(ctx context.Context) (*Session, error) {
	repo, err := crontab.Open(ctx, a.transport, a.repoOptions()...)
	if err != nil {
		return nil, err
	}
	return &Session{app: a, repo: repo, base: repo.Source()}, nil
}

// History returns the newest audit entries first.
func (a *App) History(ctx context.Context, limit int) ([]storage.AuditEntry, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.ListAudit(ctx, limit)
}

// Snapshots lists restorable versions of this crontab, newest first.
func (a *App) Snapshots(ctx context.Context, limit int) ([]storage.Snapshot, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.ListSnapshots(ctx, a.identity, limit)
}

// splitTransport reads a fixed text and writes through to the live
// transport. Restore uses it to persist snapshot text through a Repository.
type splitTransport struct {
	content string
	w       crontab.Transport
}

func (t *splitTransport) ReadRaw(ctx context.Context) (string, error) {
	_ = ctx
	return t.content, nil
}

func (t *splitTransport) WriteRaw(ctx context.Context, content string) error {
	return t.w.WriteRaw(ctx, content)
}

// RestoreSession prepares writing snapshot id back. The current live text
// becomes the base, so committing the session snapshots it first and the
// restore itself can be undone.
func (a *App) RestoreSession(ctx context.Context, id string) (*Session, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	snap, err := a.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if snap.Identity != a.identity {
		return nil, fmt.Errorf("snapshot %s belongs to %q, not %q", id, snap.Identity, a.identity)
	}

	current, err := a.transport.ReadRaw(ctx)
	if err != nil && !errors.Is(err, crontab.ErrNoSchedule) {
		return nil, &crontab.TransportError{Op: "read", Err: err}
	}

	// Snapshots are written back verbatim, whatever the configured policy.
	repo := crontab.NewRepository(&splitTransport{content: snap.Content, w: a.transport},
		crontab.WithStrayLines(crontab.StrayPreserve),
		crontab.WithLogger(a.log.With(logx.String("comp", "crontab"))),
	)
	if err := repo.Load(ctx); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return &Session{app: a, repo: repo, base: current}, nil
}

// Restore writes snapshot id back to the live crontab.
func (a *App) Restore(ctx context.Context, id string) (CommitResult, error) {
	s, err := a.RestoreSession(ctx, id)
	if err != nil {
		return CommitResult{}, err
	}
	return s.Commit(ctx, "restore")
}

func currentActor() string {
	if u, err := user.Current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
