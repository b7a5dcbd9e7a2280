package transport

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

const defaultFileMode fs.FileMode = 0o600

// FileTransport reads and writes a crontab file directly, e.g. a file under
// /etc/cron.d or a spool copy used in tests.
type FileTransport struct {
	Path string
	log  logx.Logger
}

func NewFile(path string, log logx.Logger) *FileTransport {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &FileTransport{Path: strings.TrimSpace(path), log: log}
}

// ReadRaw returns the file content. A missing file is an empty crontab.
func (t *FileTransport) ReadRaw(ctx context.Context) (string, error) {
	if err := ctxErr(ctx); err != nil {
		return "", &crontab.TransportError{Op: "read", Err: err}
	}
	if t.Path == "" {
		return "", &crontab.TransportError{Op: "read", Err: errors.New("file path is empty")}
	}
	b, err := os.ReadFile(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		t.log.Debug("crontab file missing; treating as empty", logx.String("path", t.Path))
		return "", nil
	}
	if err != nil {
		return "", &crontab.TransportError{Op: "read", Err: err}
	}
	return string(b), nil
}

// WriteRaw replaces the file atomically: the content goes to a temp file in
// the same directory which is then renamed over the target. The previous
// file mode is kept.
func (t *FileTransport) WriteRaw(ctx context.Context, content string) error {
	if err := ctxErr(ctx); err != nil {
		return &crontab.TransportError{Op: "write", Err: err}
	}
	if t.Path == "" {
		return &crontab.TransportError{Op: "write", Err: errors.New("file path is empty")}
	}
	if err := t.replace(content); err != nil {
		return &crontab.TransportError{Op: "write", Err: err}
	}
	t.log.Debug("crontab file written", logx.String("path", t.Path), logx.Int("bytes", len(content)))
	return nil
}

func (t *FileTransport) replace(content string) error {
	mode := defaultFileMode
	if st, err := os.Stat(t.Path); err == nil {
		mode = st.Mode().Perm()
	}
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(t.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, t.Path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
