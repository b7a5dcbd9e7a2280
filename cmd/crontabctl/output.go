package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"crontabmgr/internal/diff"
	"crontabmgr/pkg/crontab"

	"github.com/fatih/color"
)

var (
	faint  = color.New(color.Faint)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

func printEntry(w io.Writer, i int, e *crontab.Entry) {
	line := e.String()
	if e.Enabled() {
		fmt.Fprintf(w, "%3d  %s\n", i, line)
		return
	}
	fmt.Fprintf(w, "%3d  %s\n", i, yellow.Sprint(line))
}

func nextRun(e *crontab.Entry, now time.Time) string {
	if !e.Enabled() {
		return "disabled"
	}
	t, err := e.Next(now)
	switch {
	case errors.Is(err, crontab.ErrNoNextRun):
		return "at boot"
	case err != nil:
		return "invalid schedule"
	}
	return t.Format("2006-01-02 15:04 MST")
}

func printDiff(w io.Writer, d diff.Result) {
	if !d.Changed() {
		faint.Fprintln(w, "no changes")
		return
	}
	fmt.Fprint(w, d.Text)
	cyan.Fprintln(w, d.Summary())
}
