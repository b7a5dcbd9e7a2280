package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `# Crontab for the batch user
# Managed by crontabctl; manual edits are preserved.
30 23 * * * df >> /tmp/df.log # disk usage
@hourly /usr/local/bin/sync.sh
`

type env struct {
	dir     string
	crontab string
	config  string
}

func newEnv(t *testing.T, content string) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		crontab: filepath.Join(dir, "batch"),
		config:  filepath.Join(dir, "crontabctl.yaml"),
	}
	require.NoError(t, os.WriteFile(e.crontab, []byte(content), 0o600))
	cfg := "crontab:\n  file: " + e.crontab + "\n" +
		"logging:\n  level: error\n" +
		"storage:\n  driver: file\n  path: " + filepath.Join(dir, "store") + "\n" +
		"daemon:\n  units: []\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) content(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(e.crontab)
	require.NoError(t, err)
	return string(b)
}

func TestRootCommandHelp(t *testing.T) {
	for _, args := range [][]string{{}, {"--help"}} {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "crontabctl")
	}
}

func TestListAndFind(t *testing.T) {
	e := newEnv(t, seed)

	out, err := e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "  0  30 23 * * * df >> /tmp/df.log # disk usage\n")
	assert.Contains(t, out, "  1  @hourly /usr/local/bin/sync.sh\n")

	out, err = e.run(t, "list", "--next")
	require.NoError(t, err)
	assert.Contains(t, out, "next: ")

	out, err = e.run(t, "find", "sync")
	require.NoError(t, err)
	assert.Equal(t, "  0  @hourly /usr/local/bin/sync.sh\n", out)

	_, err = e.run(t, "find", "(")
	assert.Error(t, err)
}

func TestAddWritesWholeCrontab(t *testing.T) {
	e := newEnv(t, seed)

	out, err := e.run(t, "add", "-s", "0 5 * * 1", "-c", "weekly-report.sh", "--comment", "mondays")
	require.NoError(t, err)
	assert.Contains(t, out, "add: crontab written (3 entries, +1 lines)")
	assert.Regexp(t, regexp.MustCompile(`snapshot [0-9a-f-]{36}`), out)
	assert.Equal(t, seed+"0 5 * * 1 weekly-report.sh # mondays\n", e.content(t))

	_, err = e.run(t, "add", "--shortcut", "reboot", "-c", "warmup.sh", "--disabled")
	require.NoError(t, err)
	assert.Contains(t, e.content(t), "#@reboot warmup.sh\n")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	e := newEnv(t, seed)

	_, err := e.run(t, "add", "-s", "0 25 * * *", "-c", "x.sh")
	assert.Error(t, err)
	_, err = e.run(t, "add", "-s", "@daily")
	assert.Error(t, err)
	_, err = e.run(t, "add", "-s", "@daily", "-c", "echo a # b")
	assert.Error(t, err)
	assert.Equal(t, seed, e.content(t))
}

func TestDryRunDoesNotWrite(t *testing.T) {
	e := newEnv(t, seed)

	out, err := e.run(t, "remove", "df", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "-30 23 * * * df >> /tmp/df.log # disk usage\n")
	assert.Contains(t, out, "-1 lines")
	assert.Equal(t, seed, e.content(t))
}

func TestSetEnableDisableRemove(t *testing.T) {
	e := newEnv(t, seed)

	_, err := e.run(t, "set", "df", "--hours", "5", "--minutes", "01", "--clear-comment")
	require.NoError(t, err)
	assert.Contains(t, e.content(t), "\n01 5 * * * df >> /tmp/df.log\n")

	_, err = e.run(t, "disable", "sync")
	require.NoError(t, err)
	assert.Contains(t, e.content(t), "\n#@hourly /usr/local/bin/sync.sh\n")

	_, err = e.run(t, "enable", "sync")
	require.NoError(t, err)
	assert.Contains(t, e.content(t), "\n@hourly /usr/local/bin/sync.sh\n")

	_, err = e.run(t, "set", "sync", "--hours", "99")
	assert.Error(t, err)

	_, err = e.run(t, "remove", "nothing-matches-this")
	assert.Error(t, err)

	_, err = e.run(t, "remove", ".")
	require.NoError(t, err)
	assert.Equal(t, "# Crontab for the batch user\n# Managed by crontabctl; manual edits are preserved.\n", e.content(t))
}

func TestHistoryAndRestore(t *testing.T) {
	e := newEnv(t, seed)

	out, err := e.run(t, "remove", "df")
	require.NoError(t, err)
	id := regexp.MustCompile(`snapshot ([0-9a-f-]{36})`).FindStringSubmatch(out)
	require.Len(t, id, 2)

	out, err = e.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "remove")
	assert.Contains(t, out, id[1])

	out, err = e.run(t, "history", "--snapshots")
	require.NoError(t, err)
	assert.Contains(t, out, id[1])

	out, err = e.run(t, "restore", id[1], "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+30 23 * * * df >> /tmp/df.log # disk usage\n")

	_, err = e.run(t, "restore", id[1])
	require.NoError(t, err)
	assert.Equal(t, seed, e.content(t))
}

func TestRenderAndStrayLines(t *testing.T) {
	withStray := seed + "MAILTO=ops@example.com\n"
	e := newEnv(t, withStray)

	_, err := e.run(t, "render")
	require.Error(t, err)

	out, err := e.run(t, "render", "--stray-lines", "preserve")
	require.NoError(t, err)
	assert.Equal(t, withStray, out)

	out, err = e.run(t, "render", "--stray-lines", "drop")
	require.NoError(t, err)
	assert.Equal(t, seed, out)
}

func TestDoctor(t *testing.T) {
	e := newEnv(t, seed)
	out, err := e.run(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries (0 disabled)")

	bad := newEnv(t, seed+"0 0-99 * * * broken.sh\n")
	out, err = bad.run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "invalid schedule: 0 0-99 * * * broken.sh")
}

func TestFileFlagOverridesConfig(t *testing.T) {
	e := newEnv(t, seed)
	other := filepath.Join(e.dir, "other")
	require.NoError(t, os.WriteFile(other, []byte("@daily only.sh\n"), 0o600))

	out, err := e.run(t, "--file", other, "list")
	require.NoError(t, err)
	assert.Equal(t, "  0  @daily only.sh\n", out)
}
