package crontab

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Standard 5-field crontab plus "@name" descriptors. @every is not part of
// the crontab dialect and is rejected before reaching the parser.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronExpr converts the entry schedule into an expression robfig/cron accepts.
func (e *Entry) cronExpr() string {
	if e.shortcut != ShortcutNone {
		return e.shortcut.Notation()
	}
	return strings.Join([]string{
		orStar(e.minutes), orStar(e.hours), orStar(e.dayOfMonth),
		orStar(e.months), normalizeSunday(orStar(e.dayOfWeek)),
	}, " ")
}

// normalizeSunday rewrites day-of-week 7 to 0, which is the only Sunday
// robfig/cron understands.
func normalizeSunday(dow string) string {
	items := strings.Split(dow, ",")
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch {
		case it == "7":
			out = append(out, "0")
		case strings.HasSuffix(it, "-7") && !strings.Contains(it, "/"):
			lo := strings.TrimSuffix(it, "-7")
			if lo == "7" {
				out = append(out, "0")
				continue
			}
			if lo == "6" {
				out = append(out, "6", "0")
				continue
			}
			out = append(out, lo+"-6", "0")
		default:
			out = append(out, it)
		}
	}
	return strings.Join(out, ",")
}

// ValidateSchedule performs a strict check of the schedule (ranges inside
// lists and steps, named months/days). Parsing stays lenient; callers that
// want stronger guarantees opt in here.
func (e *Entry) ValidateSchedule() error {
	if e.shortcut == ShortcutReboot {
		return nil
	}
	if _, err := scheduleParser.Parse(e.cronExpr()); err != nil {
		return &ValidationError{Field: "schedule", Value: e.Schedule(), Err: err}
	}
	return nil
}

// Next returns the first activation strictly after the given time.
func (e *Entry) Next(after time.Time) (time.Time, error) {
	if e.shortcut == ShortcutReboot {
		return time.Time{}, ErrNoNextRun
	}
	sched, err := scheduleParser.Parse(e.cronExpr())
	if err != nil {
		return time.Time{}, &ValidationError{Field: "schedule", Value: e.Schedule(), Err: err}
	}
	next := sched.Next(after)
	if next.IsZero() {
		return time.Time{}, ErrNoNextRun
	}
	return next, nil
}
