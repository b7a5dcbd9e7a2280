// Package watch reports external edits of a crontab spool file.
//
// Changes are only detected, never merged: callers typically reload their
// Repository and warn that unsaved in-memory edits are now stale.
package watch

import (
	"context"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "crontabmgr/pkg/logx"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watcher calls OnChange after Path was written, created, renamed or
// removed and its content differs from the last delivered version.
type Watcher struct {
	Path       string
	Debounce   time.Duration
	RatePerSec int // 0 disables limiting
	OnChange   func(ctx context.Context)
	Log        logx.Logger

	mu       sync.Mutex
	timer    *time.Timer
	lastHash uint64
	limiter  *rate.Limiter
}

// hashFile returns a stable hash of the file content; a missing file
// hashes to 0.
func hashFile(path string) uint64 {
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

func (w *Watcher) log() logx.Logger {
	if w.Log.IsZero() {
		return logx.Nop()
	}
	return w.Log
}

// Run blocks until ctx is done. The fsnotify watcher is placed on the
// parent directory so atomic replaces (rename over the file) are seen.
func (w *Watcher) Run(ctx context.Context) error {
	if strings.TrimSpace(w.Path) == "" {
		return os.ErrInvalid
	}
	if w.Debounce <= 0 {
		w.Debounce = defaultDebounce
	}
	if w.RatePerSec > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(w.RatePerSec), 1)
	}
	w.lastHash = hashFile(w.Path)
	defer w.stopTimer()

	dir := filepath.Dir(w.Path)
	file := filepath.Base(w.Path)
	log := w.log()

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}
	sleep := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("spool watch init failed", logx.Err(err), logx.String("dir", dir))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			log.Warn("spool watch add failed", logx.Err(err), logx.String("dir", dir))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		log.Debug("spool watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if filepath.Base(ev.Name) == file &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					w.schedule(ctx)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means we may have missed events; check once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					log.Warn("spool watch overflow; forcing check", logx.Err(err))
					w.schedule(ctx)
					continue
				}
				log.Warn("spool watch error", logx.Err(err), logx.String("dir", dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextWait()
		log.Warn("spool watcher stopped; restarting", logx.String("file", w.Path), logx.Duration("backoff", wait))
		if !sleep(wait) {
			return nil
		}
	}
}

// schedule (re)arms the debounce timer so bursts of events from one
// editor save collapse into a single check.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, func() { w.fire(ctx) })
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	h := hashFile(w.Path)
	w.mu.Lock()
	unchanged := h == w.lastHash
	if !unchanged {
		w.lastHash = h
	}
	w.mu.Unlock()
	if unchanged {
		w.log().Debug("spool file unchanged; skipping", logx.String("path", w.Path))
		return
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
	}
	w.log().Debug("spool file changed", logx.String("path", w.Path))
	if w.OnChange != nil {
		w.OnChange(ctx)
	}
}
