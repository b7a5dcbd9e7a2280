package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"crontabmgr/pkg/crontab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	stdin string
	argv  []string
}

type fakeRunner struct {
	calls  []call
	out    string
	errOut string
	err    error
}

func (f *fakeRunner) run(ctx context.Context, stdin string, name string, args ...string) ([]byte, []byte, error) {
	_ = ctx
	f.calls = append(f.calls, call{stdin: stdin, argv: append([]string{name}, args...)})
	return []byte(f.out), []byte(f.errOut), f.err
}

func newFake(cfg ExecConfig, r *fakeRunner) *ExecTransport {
	t := NewExec(cfg, logxNop())
	t.SetRunner(r.run)
	return t
}

func TestExecCommandLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		cfg   ExecConfig
		read  string
		write string
	}{
		{"runtime user", ExecConfig{}, "crontab -l", "crontab -"},
		{"other user", ExecConfig{User: "waylon"}, "crontab -u waylon -l", "crontab -u waylon -"},
		{"sudo", ExecConfig{User: "waylon", Sudo: true}, "sudo -n -u waylon crontab -l", "sudo -n -u waylon crontab -"},
		{"sudo without user", ExecConfig{Sudo: true}, "crontab -l", "crontab -"},
		{"custom binaries", ExecConfig{User: "ops", Sudo: true, CrontabPath: "/usr/bin/crontab", SudoPath: "/usr/bin/sudo"},
			"/usr/bin/sudo -n -u ops /usr/bin/crontab -l", "/usr/bin/sudo -n -u ops /usr/bin/crontab -"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &fakeRunner{out: "30 23 * * * df\n"}
			tr := newFake(tt.cfg, r)

			got, err := tr.ReadRaw(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "30 23 * * * df\n", got)
			require.NoError(t, tr.WriteRaw(context.Background(), "0 1 * * * df\n"))

			require.Len(t, r.calls, 2)
			assert.Equal(t, tt.read, strings.Join(r.calls[0].argv, " "))
			assert.Equal(t, "", r.calls[0].stdin)
			assert.Equal(t, tt.write, strings.Join(r.calls[1].argv, " "))
			assert.Equal(t, "0 1 * * * df\n", r.calls[1].stdin)
		})
	}
}

func TestExecNoCrontabIsEmpty(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{errOut: "no crontab for waylon\n", err: errors.New("exit status 1")}
	tr := newFake(ExecConfig{User: "waylon"}, r)

	got, err := tr.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)

	assert.NoError(t, tr.WriteRaw(context.Background(), ""))
}

func TestExecFailureCarriesOutput(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{
		errOut: "sudo: a password is required\n",
		err:    errors.New("exit status 1"),
	}
	tr := newFake(ExecConfig{User: "waylon", Sudo: true}, r)

	_, err := tr.ReadRaw(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, crontab.ErrTransport)
	var te *crontab.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
	assert.Contains(t, te.Output, "a password is required")

	err = tr.WriteRaw(context.Background(), "* * * * * df\n")
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
}

func TestExecNoCrontabOnlyOnFirstLine(t *testing.T) {
	t.Parallel()
	assert.True(t, isNoCrontab([]byte("no crontab for root\n")))
	assert.True(t, isNoCrontab([]byte("\nno crontab for root")))
	assert.False(t, isNoCrontab([]byte("no crontab for \n")))
	assert.False(t, isNoCrontab([]byte("crontab: error\nno crontab for root\n")))
}

func TestExecTimeout(t *testing.T) {
	t.Parallel()
	tr := NewExec(ExecConfig{Timeout: 10 * time.Millisecond}, logxNop())
	tr.SetRunner(func(ctx context.Context, stdin string, name string, args ...string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, errors.New("signal: killed")
	})

	_, err := tr.ReadRaw(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, crontab.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecIdentity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", NewExec(ExecConfig{}, logxNop()).Identity())
	assert.Equal(t, "waylon", NewExec(ExecConfig{User: "waylon"}, logxNop()).Identity())
}

func TestExecStderrIsNotCrontabText(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{
		out:    "30 23 * * * df\n",
		errOut: "sudo: unable to resolve host box\n",
	}
	tr := newFake(ExecConfig{User: "waylon", Sudo: true}, r)

	got, err := tr.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30 23 * * * df\n", got)
}

func TestExecFailureOutputOrder(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{out: "partial", errOut: "crontab: bad minute", err: errors.New("exit status 1")}
	_, err := newFake(ExecConfig{}, r).ReadRaw(context.Background())
	var te *crontab.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "crontab: bad minute\npartial", te.Output)
}

// fakeCrontabBinary writes a shell script standing in for crontab(1). It
// prints a sudo-style warning on stderr, lists store on -l and replaces
// store from stdin on -. A missing store reports "no crontab".
func fakeCrontabBinary(t *testing.T, store string, listExit int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	script := filepath.Join(t.TempDir(), "crontab")
	body := `#!/bin/sh
case "$1" in
-l)
	if [ ! -f "` + store + `" ]; then echo "no crontab for tester" >&2; exit 1; fi
	echo "sudo: unable to resolve host box" >&2
	cat "` + store + `"
	exit ` + string(rune('0'+listExit)) + `
	;;
-)
	echo "sudo: unable to resolve host box" >&2
	cat > "` + store + `"
	;;
esac
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestExecRunnerSeparatesStderr(t *testing.T) {
	store := filepath.Join(t.TempDir(), "tab")
	tr := NewExec(ExecConfig{CrontabPath: fakeCrontabBinary(t, store, 0), Timeout: 5 * time.Second}, logxNop())
	ctx := context.Background()

	got, err := tr.ReadRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	require.NoError(t, os.WriteFile(store, []byte("30 23 * * * df\n"), 0o600))
	repo, err := crontab.Open(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, "", repo.Header())
	require.Len(t, repo.Entries(), 1)

	repo.AddEntry(crontab.NewEntry("uptime"))
	require.NoError(t, repo.Persist(ctx))
	b, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.Equal(t, "30 23 * * * df\n* * * * * uptime\n", string(b))
}

func TestExecRunnerFailureKeepsStderr(t *testing.T) {
	store := filepath.Join(t.TempDir(), "tab")
	require.NoError(t, os.WriteFile(store, []byte("30 23 * * * df\n"), 0o600))
	tr := NewExec(ExecConfig{CrontabPath: fakeCrontabBinary(t, store, 2)}, logxNop())

	_, err := tr.ReadRaw(context.Background())
	var te *crontab.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Output, "unable to resolve host box")
	assert.Contains(t, te.Output, "30 23 * * * df")
}
