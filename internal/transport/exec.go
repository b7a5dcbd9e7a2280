package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

// Runner executes name with args, feeding stdin, and returns stdout and
// stderr separately. A non-nil error means the process failed or exited
// non-zero.
type Runner func(ctx context.Context, stdin string, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command through os/exec.
func ExecRunner(ctx context.Context, stdin string, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExecConfig selects whose crontab is managed and how.
//
//   - User == ""          : crontab -l / crontab -
//   - User != "", !Sudo   : crontab -u USER -l (needs root)
//   - User != "", Sudo    : sudo -n -u USER crontab -l
//
// For the sudo form the runtime user needs a NOPASSWD sudoers rule such as
//
//	www-data ALL=(waylon) NOPASSWD: /usr/bin/crontab
type ExecConfig struct {
	User        string
	Sudo        bool
	CrontabPath string        // default "crontab"
	SudoPath    string        // default "sudo"
	Timeout     time.Duration // 0 disables
}

// ExecTransport reads and writes a crontab by invoking the crontab binary.
type ExecTransport struct {
	cfg ExecConfig
	run Runner
	log logx.Logger
}

func NewExec(cfg ExecConfig, log logx.Logger) *ExecTransport {
	if strings.TrimSpace(cfg.CrontabPath) == "" {
		cfg.CrontabPath = "crontab"
	}
	if strings.TrimSpace(cfg.SudoPath) == "" {
		cfg.SudoPath = "sudo"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ExecTransport{cfg: cfg, run: ExecRunner, log: log}
}

// SetRunner replaces the process runner (tests).
func (t *ExecTransport) SetRunner(r Runner) {
	if r != nil {
		t.run = r
	}
}

// Identity returns the configured user, or "" for the runtime user.
func (t *ExecTransport) Identity() string { return t.cfg.User }

// command builds the argv for a read ("-l") or write ("-") invocation.
func (t *ExecTransport) command(action string) (string, []string) {
	user := strings.TrimSpace(t.cfg.User)
	switch {
	case user != "" && t.cfg.Sudo:
		return t.cfg.SudoPath, []string{"-n", "-u", user, t.cfg.CrontabPath, action}
	case user != "":
		return t.cfg.CrontabPath, []string{"-u", user, action}
	default:
		return t.cfg.CrontabPath, []string{action}
	}
}

var reNoCrontab = regexp.MustCompile(`^no crontab for .+$`)

// isNoCrontab reports whether the first output line is crontab's
// "no crontab for <user>" diagnostic.
func isNoCrontab(out []byte) bool {
	first, _, _ := strings.Cut(strings.TrimLeft(string(out), "\r\n"), "\n")
	return reNoCrontab.MatchString(strings.TrimSpace(first))
}

// result is one crontab invocation. Only stdout is crontab text; stderr
// (sudo warnings, crontab diagnostics) never is.
type result struct {
	stdout []byte
	stderr []byte
}

// noCrontab checks stderr, where crontab prints the diagnostic, then stdout.
func (r result) noCrontab() bool {
	return isNoCrontab(r.stderr) || isNoCrontab(r.stdout)
}

// diagnostics is stderr followed by stdout, for matching and error reports.
func (r result) diagnostics() []byte {
	switch {
	case len(r.stdout) == 0:
		return r.stderr
	case len(r.stderr) == 0:
		return r.stdout
	}
	out := append([]byte(nil), r.stderr...)
	if out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, r.stdout...)
}

func (t *ExecTransport) exec(ctx context.Context, op, stdin string) (result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}
	action := "-l"
	if op == "write" {
		action = "-"
	}
	name, args := t.command(action)
	start := time.Now()
	stdout, stderr, err := t.run(ctx, stdin, name, args...)
	t.log.Debug("crontab command finished",
		logx.String("op", op),
		logx.String("cmd", name+" "+strings.Join(args, " ")),
		logx.Duration("took", time.Since(start)),
		logx.Bool("ok", err == nil),
		logx.Int("stderr_bytes", len(stderr)),
	)
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return result{stdout: stdout, stderr: stderr}, err
}

// ReadRaw returns the crontab text. "no crontab for <user>" yields "".
func (t *ExecTransport) ReadRaw(ctx context.Context) (string, error) {
	res, err := t.exec(ctx, "read", "")
	if err != nil {
		if res.noCrontab() {
			t.log.Debug("no crontab installed; treating as empty", logx.String("user", t.cfg.User))
			return "", nil
		}
		return "", transportError("read", res.diagnostics(), err)
	}
	if len(res.stderr) > 0 {
		t.log.Warn("crontab read succeeded with diagnostics", logx.String("stderr", strings.TrimSpace(string(res.stderr))))
	}
	return string(res.stdout), nil
}

// WriteRaw installs content as the whole crontab.
func (t *ExecTransport) WriteRaw(ctx context.Context, content string) error {
	res, err := t.exec(ctx, "write", content)
	if err != nil {
		if res.noCrontab() {
			return nil
		}
		return transportError("write", res.diagnostics(), err)
	}
	return nil
}

func transportError(op string, out []byte, err error) error {
	return &crontab.TransportError{Op: op, Output: string(out), Err: err}
}
