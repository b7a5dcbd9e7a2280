package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logxNop() logx.Logger { return logx.Nop() }

func TestFileMissingIsEmpty(t *testing.T) {
	t.Parallel()
	tr := NewFile(filepath.Join(t.TempDir(), "crontab"), logxNop())
	got, err := tr.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestFileWriteCreatesWithDefaultMode(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "spool", "batch")
	tr := NewFile(path, logxNop())

	require.NoError(t, tr.WriteRaw(context.Background(), "30 23 * * * df\n"))
	got, err := tr.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30 23 * * * df\n", got)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestFileWriteKeepsModeAndLeavesNoTemp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	tr := NewFile(path, logxNop())
	require.NoError(t, tr.WriteRaw(context.Background(), "@daily backup.sh\n"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "@daily backup.sh\n", string(b))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crontab")
	require.NoError(t, os.WriteFile(path, []byte("# header\n30 23 * * * df # disk\n"), 0o600))

	ctx := context.Background()
	repo, err := crontab.Open(ctx, NewFile(path, logxNop()))
	require.NoError(t, err)
	require.Equal(t, 1, repo.Len())

	e := crontab.NewEntry("backup.sh")
	require.NoError(t, e.SetShortcut(crontab.ShortcutDaily))
	repo.AddEntry(e)
	require.NoError(t, repo.Persist(ctx))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# header\n30 23 * * * df # disk\n@daily backup.sh\n", string(b))
}

func TestFileEmptyPath(t *testing.T) {
	t.Parallel()
	tr := NewFile("  ", logxNop())
	_, err := tr.ReadRaw(context.Background())
	assert.ErrorIs(t, err, crontab.ErrTransport)
	assert.ErrorIs(t, tr.WriteRaw(context.Background(), ""), crontab.ErrTransport)
}

func TestFileCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewFile(filepath.Join(t.TempDir(), "c"), logxNop())
	_, err := tr.ReadRaw(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
