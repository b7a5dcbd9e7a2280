package app

import (
	"context"
	"errors"

	"crontabmgr/pkg/cronsvc"
	"crontabmgr/pkg/crontab"
)

// Report is the result of Doctor.
type Report struct {
	Identity string

	ReadErr  error // transport could not read the crontab
	ParseErr error // crontab text does not load under the stray-line policy

	Entries  int
	Disabled int
	// Invalid holds entries that load but fail strict schedule validation.
	Invalid []InvalidEntry

	Units    []cronsvc.UnitStatus
	UnitsErr error
}

type InvalidEntry struct {
	Line string
	Err  error
}

// OK reports whether the crontab is readable and well-formed and, when
// units could be queried, a cron daemon is running.
func (r Report) OK() bool {
	if r.ReadErr != nil || r.ParseErr != nil || len(r.Invalid) > 0 {
		return false
	}
	if r.UnitsErr == nil && len(r.Units) > 0 && !cronsvc.AnyRunning(r.Units) {
		return false
	}
	return true
}

// Doctor checks the transport, the crontab content and the cron daemon.
// Problems are reported in the Report, not as an error.
func (a *App) Doctor(ctx context.Context) Report {
	r := Report{Identity: a.identity}

	repo := crontab.NewRepository(a.transport, a.repoOptions()...)
	if err := repo.Load(ctx); err != nil {
		if errors.Is(err, crontab.ErrTransport) {
			r.ReadErr = err
		} else {
			r.ParseErr = err
		}
	} else {
		for _, e := range repo.Entries() {
			r.Entries++
			if !e.Enabled() {
				r.Disabled++
			}
			if err := e.ValidateSchedule(); err != nil {
				r.Invalid = append(r.Invalid, InvalidEntry{Line: e.String(), Err: err})
			}
		}
	}

	if len(a.cfg.Daemon.Units) > 0 && a.status != nil {
		r.Units, r.UnitsErr = a.status(ctx, a.cfg.Daemon.Units)
	}
	return r
}
