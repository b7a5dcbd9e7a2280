package crontab

import "strings"

// Shortcut is a named macro replacing the five time fields ("@daily").
// The zero value means the entry uses explicit fields.
type Shortcut string

const (
	ShortcutNone     Shortcut = ""
	ShortcutYearly   Shortcut = "yearly"
	ShortcutAnnually Shortcut = "annually"
	ShortcutMonthly  Shortcut = "monthly"
	ShortcutWeekly   Shortcut = "weekly"
	ShortcutDaily    Shortcut = "daily"
	ShortcutMidnight Shortcut = "midnight"
	ShortcutHourly   Shortcut = "hourly"
	ShortcutReboot   Shortcut = "reboot"
)

var shortcuts = map[Shortcut]struct{}{
	ShortcutYearly:   {},
	ShortcutAnnually: {},
	ShortcutMonthly:  {},
	ShortcutWeekly:   {},
	ShortcutDaily:    {},
	ShortcutMidnight: {},
	ShortcutHourly:   {},
	ShortcutReboot:   {},
}

// Shortcuts lists the recognised names in a stable order.
func Shortcuts() []Shortcut {
	return []Shortcut{
		ShortcutYearly, ShortcutAnnually, ShortcutMonthly, ShortcutWeekly,
		ShortcutDaily, ShortcutMidnight, ShortcutHourly, ShortcutReboot,
	}
}

// Valid reports whether s is a recognised shortcut name. ShortcutNone is not.
func (s Shortcut) Valid() bool {
	_, ok := shortcuts[s]
	return ok
}

// Notation returns the "@name" form, or "" for ShortcutNone.
func (s Shortcut) Notation() string {
	if s == ShortcutNone {
		return ""
	}
	return "@" + string(s)
}

// ParseShortcut accepts "hourly" or "@hourly".
func ParseShortcut(name string) (Shortcut, error) {
	s := Shortcut(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	if !s.Valid() {
		return ShortcutNone, &ValidationError{Field: "shortcut", Value: name, Reason: "not a recognised shortcut"}
	}
	return s, nil
}
