package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logx "crontabmgr/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsExternalEdit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "batch")
	require.NoError(t, os.WriteFile(path, []byte("30 23 * * * df\n"), 0o600))

	var calls atomic.Int32
	w := &Watcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(ctx context.Context) { calls.Add(1) },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("01 05 * * * df\n"), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	// Rewriting identical content is not a change.
	require.NoError(t, os.WriteFile(path, []byte("01 05 * * * df\n"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "batch")

	var calls atomic.Int32
	w := &Watcher{Path: path, Debounce: 10 * time.Millisecond, OnChange: func(context.Context) { calls.Add(1) }}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), []byte("x\n"), 0o600))
	time.Sleep(150 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, calls.Load())
}

func TestWatcherRequiresPath(t *testing.T) {
	t.Parallel()
	w := &Watcher{}
	assert.Error(t, w.Run(context.Background()))
}

func TestWatcherLogsAddFailure(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := &Watcher{
		Path:     filepath.Join(t.TempDir(), "missing", "batch"),
		OnChange: func(context.Context) {},
		Log:      logx.NewWriter(&buf, "warn"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	out := buf.String()
	assert.Contains(t, out, "spool watch add failed")
	assert.Contains(t, out, "no such file or directory")
}
