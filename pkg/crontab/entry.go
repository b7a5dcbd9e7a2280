package crontab

import (
	"fmt"
	"strconv"
	"strings"
)

// disableMarker prefixes the formatted line of a disabled entry.
const disableMarker = "#"

// Entry is one scheduled job line. Entries have no identity beyond their
// fields; repositories hand out *Entry pointers so edits made through a
// query result are visible to the next persist.
type Entry struct {
	enabled bool
	marker  string

	minutes    string
	hours      string
	dayOfMonth string
	months     string
	dayOfWeek  string
	shortcut   Shortcut

	command    string
	comments   string
	hasComment bool
	// tight is set when the parsed annotation had no blank after '#'.
	tight bool

	// raw is the source line while the entry is unmodified; any change
	// clears it and Format falls back to the canonical layout.
	raw string
}

// NewEntry returns an enabled entry running command at "* * * * *".
// The command is not validated here; Format rejects an empty one.
func NewEntry(command string) *Entry {
	return &Entry{enabled: true, command: command}
}

type fieldSpec struct {
	name    string
	min     int
	max     int
	letters string // "" | "lower" | "any"
}

var (
	minutesField    = fieldSpec{name: "minutes", min: 0, max: 59}
	hoursField      = fieldSpec{name: "hours", min: 0, max: 23}
	dayOfMonthField = fieldSpec{name: "day of month", min: 1, max: 31}
	monthsField     = fieldSpec{name: "months", min: 1, max: 12, letters: "lower"}
	// 0 and 7 both mean Sunday.
	dayOfWeekField = fieldSpec{name: "day of week", min: 0, max: 7, letters: "any"}
)

func (f fieldSpec) allows(c byte) bool {
	switch {
	case c == '*' || c == ',' || c == '-' || c == '/':
		return true
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return f.letters != ""
	case c >= 'A' && c <= 'Z':
		return f.letters == "any"
	}
	return false
}

// validate checks the character class and, for plain integer literals, the range.
func (f fieldSpec) validate(v string) error {
	if v == "" {
		return nil
	}
	for i := 0; i < len(v); i++ {
		if !f.allows(v[i]) {
			return &ValidationError{Field: f.name, Value: v, Reason: fmt.Sprintf("unexpected character %q", v[i])}
		}
	}
	if !isDigits(v) {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < f.min || n > f.max {
		return &ValidationError{Field: f.name, Value: v, Reason: fmt.Sprintf("must be between %d and %d", f.min, f.max)}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (e *Entry) Enabled() bool      { return e.enabled }
func (e *Entry) Minutes() string    { return e.minutes }
func (e *Entry) Hours() string      { return e.hours }
func (e *Entry) DayOfMonth() string { return e.dayOfMonth }
func (e *Entry) Months() string     { return e.months }
func (e *Entry) DayOfWeek() string  { return e.dayOfWeek }
func (e *Entry) Shortcut() Shortcut { return e.shortcut }
func (e *Entry) Command() string    { return e.command }
func (e *Entry) Comments() string   { return e.comments }
func (e *Entry) HasComment() bool   { return e.hasComment }

func (e *Entry) SetEnabled(on bool) {
	if e.enabled != on {
		e.enabled, e.raw = on, ""
	}
}

func (e *Entry) ClearComments() {
	if e.hasComment {
		e.comments, e.hasComment, e.tight, e.raw = "", false, false, ""
	}
}

func (e *Entry) ClearShortcut() {
	if e.shortcut != ShortcutNone {
		e.shortcut, e.raw = ShortcutNone, ""
	}
}

func (e *Entry) setField(dst *string, spec fieldSpec, v string) error {
	if err := spec.validate(v); err != nil {
		return err
	}
	if *dst != v {
		*dst, e.raw = v, ""
	}
	return nil
}

// SetMinutes sets the minutes field; "" resets it to "*".
func (e *Entry) SetMinutes(v string) error { return e.setField(&e.minutes, minutesField, v) }

// SetHours sets the hours field; "" resets it to "*".
func (e *Entry) SetHours(v string) error { return e.setField(&e.hours, hoursField, v) }

// SetDayOfMonth sets the day-of-month field; "" resets it to "*".
func (e *Entry) SetDayOfMonth(v string) error { return e.setField(&e.dayOfMonth, dayOfMonthField, v) }

// SetMonths sets the months field; "" resets it to "*".
func (e *Entry) SetMonths(v string) error { return e.setField(&e.months, monthsField, v) }

// SetDayOfWeek sets the day-of-week field; "" resets it to "*".
// Both "0" and "7" are accepted for Sunday and kept as written.
func (e *Entry) SetDayOfWeek(v string) error { return e.setField(&e.dayOfWeek, dayOfWeekField, v) }

// SetShortcut sets the shortcut; ShortcutNone clears it.
func (e *Entry) SetShortcut(s Shortcut) error {
	if s != ShortcutNone && !s.Valid() {
		return &ValidationError{Field: "shortcut", Value: string(s), Reason: "not a recognised shortcut"}
	}
	if e.shortcut != s {
		e.shortcut, e.raw = s, ""
	}
	return nil
}

// SetCommand sets the task command line. A command cannot carry '#'
// (it would be read back as a comment) nor line breaks.
func (e *Entry) SetCommand(cmd string) error {
	if strings.ContainsAny(cmd, "#\r\n") {
		return &ValidationError{Field: "command", Value: cmd, Reason: "must not contain '#' or line breaks"}
	}
	if cmd != "" && (cmd[0] == ' ' || cmd[0] == '\t') {
		return &ValidationError{Field: "command", Value: cmd, Reason: "must not start with whitespace"}
	}
	if e.command != cmd {
		e.command, e.raw = cmd, ""
	}
	return nil
}

// SetComments sets the trailing annotation, written as " # <c>".
// "" removes it.
func (e *Entry) SetComments(c string) error {
	if strings.ContainsAny(c, "\r\n") {
		return &ValidationError{Field: "comments", Value: c, Reason: "must not contain line breaks"}
	}
	if c == e.comments && (c != "") == e.hasComment && !e.tight {
		return nil
	}
	e.comments, e.hasComment, e.tight, e.raw = c, c != "", false, ""
	return nil
}

// SetSchedule applies "m h dom mon dow" or "@name" as a unit: on error the
// entry is left untouched.
func (e *Entry) SetSchedule(expr string) error {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "@") {
		s, err := ParseShortcut(expr)
		if err != nil {
			return err
		}
		return e.SetShortcut(s)
	}
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return &ValidationError{Field: "schedule", Value: expr, Reason: "expected five fields or @shortcut"}
	}
	next := *e
	next.ClearShortcut()
	setters := []func(string) error{next.SetMinutes, next.SetHours, next.SetDayOfMonth, next.SetMonths, next.SetDayOfWeek}
	for i, set := range setters {
		if err := set(parts[i]); err != nil {
			return err
		}
	}
	*e = next
	return nil
}

func orStar(v string) string {
	if v == "" {
		return "*"
	}
	return v
}

// Schedule returns the time notation used in the formatted line.
func (e *Entry) Schedule() string {
	if e.shortcut != ShortcutNone {
		return e.shortcut.Notation()
	}
	return strings.Join([]string{
		orStar(e.minutes), orStar(e.hours), orStar(e.dayOfMonth), orStar(e.months), orStar(e.dayOfWeek),
	}, " ")
}

// Format renders the entry as a crontab line (without newline). A parsed
// entry that was not modified renders as its source line, blanks included.
func (e *Entry) Format() (string, error) {
	if e.raw != "" {
		return e.raw, nil
	}
	if e.command == "" {
		return "", &ValidationError{Field: "command", Reason: "entry has no task command line"}
	}
	var b strings.Builder
	if !e.enabled {
		m := e.marker
		if m == "" {
			m = disableMarker
		}
		b.WriteString(m)
	}
	b.WriteString(e.Schedule())
	b.WriteByte(' ')
	b.WriteString(e.command)
	if e.hasComment {
		b.WriteString(" #")
		if !e.tight {
			b.WriteByte(' ')
		}
		b.WriteString(e.comments)
	}
	return b.String(), nil
}

// String returns the formatted line, or "" when the entry cannot be formatted.
func (e *Entry) String() string {
	s, _ := e.Format()
	return s
}

// Equal compares entries field by field. Blanks after the disable marker
// and after the comment '#' are presentation and are ignored.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.enabled == o.enabled &&
		e.minutes == o.minutes &&
		e.hours == o.hours &&
		e.dayOfMonth == o.dayOfMonth &&
		e.months == o.months &&
		e.dayOfWeek == o.dayOfWeek &&
		e.shortcut == o.shortcut &&
		e.command == o.command &&
		e.hasComment == o.hasComment &&
		e.comments == o.comments
}

// Clone returns an independent copy.
func (e *Entry) Clone() *Entry {
	cp := *e
	return &cp
}
