package crontab

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat     = errors.New("crontab: line does not match the entry grammar")
	ErrValidation = errors.New("crontab: invalid value")
	ErrTransport  = errors.New("crontab: transport failed")
	ErrNotFound   = errors.New("crontab: entry not found")

	// ErrNoSchedule is returned by transports when no crontab exists for the
	// configured identity. Repositories treat it as an empty schedule.
	ErrNoSchedule = errors.New("crontab: no schedule for identity")

	// ErrNoNextRun is returned by Entry.Next for @reboot entries.
	ErrNoNextRun = errors.New("crontab: schedule has no next run time")
)

// FormatError reports a line that cannot be parsed as an entry.
type FormatError struct {
	Line   string
	LineNo int // 1-based; 0 when unknown
	Reason string
	// Hint suggests a way out, e.g. a less strict stray-line policy.
	Hint string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("crontab: malformed line")
	if e.LineNo > 0 {
		fmt.Fprintf(&b, " %d", e.LineNo)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	fmt.Fprintf(&b, " (%q)", e.Line)
	if e.Hint != "" {
		b.WriteString("; ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ValidationError reports a field value (or search pattern) outside its domain.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("crontab: invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) Unwrap() error        { return e.Err }

// TransportError carries the diagnostic output of a failed read or write.
type TransportError struct {
	Op     string // "read" | "write"
	Output string
	Err    error
}

func (e *TransportError) Error() string {
	msg := "crontab: " + e.Op + " failed"
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + strings.Join(strings.Fields(out), " ")
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
func (e *TransportError) Unwrap() error        { return e.Err }

// NotFoundError is returned when removing an entry the repository does not hold.
type NotFoundError struct {
	Entry *Entry
}

func (e *NotFoundError) Error() string {
	if e.Entry == nil {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNotFound.Error(), e.Entry.String())
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
