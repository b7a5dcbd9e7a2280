package crontab

import "strings"

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func skipBlanks(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	return i
}

// nextToken returns the maximal run of non-blank bytes starting at i.
func nextToken(s string, i int) (string, int) {
	j := i
	for j < len(s) && !isBlank(s[j]) {
		j++
	}
	return s[i:j], j
}

// Parse decodes one crontab line:
//
//	[blanks] [# [blanks]] (m h dom mon dow | @shortcut) blanks command [blank # [blank] comment]
//
// Grammar mismatches yield *FormatError; a well-shaped line whose numeric
// literal is out of range yields *ValidationError.
func Parse(line string) (*Entry, error) {
	fail := func(reason string) (*Entry, error) {
		return nil, &FormatError{Line: line, Reason: reason}
	}

	e := &Entry{enabled: true, raw: line}
	i := skipBlanks(line, 0)
	if i < len(line) && line[i] == '#' {
		start := i
		i = skipBlanks(line, i+1)
		e.enabled = false
		e.marker = line[start:i]
	}
	if i >= len(line) {
		return fail("missing schedule")
	}

	if line[i] == '@' {
		tok, j := nextToken(line, i)
		s := Shortcut(tok[1:])
		if !s.Valid() {
			return fail("unknown shortcut " + tok)
		}
		e.shortcut = s
		i = j
	} else {
		specs := [5]fieldSpec{minutesField, hoursField, dayOfMonthField, monthsField, dayOfWeekField}
		dsts := [5]*string{&e.minutes, &e.hours, &e.dayOfMonth, &e.months, &e.dayOfWeek}
		for n := 0; n < 5; n++ {
			if n > 0 {
				if i >= len(line) || !isBlank(line[i]) {
					return fail("expected five schedule fields")
				}
				i = skipBlanks(line, i)
			}
			tok, j := nextToken(line, i)
			if tok == "" {
				return fail("expected five schedule fields")
			}
			for k := 0; k < len(tok); k++ {
				if !specs[n].allows(tok[k]) {
					return fail("unexpected character in " + specs[n].name + " field")
				}
			}
			if err := specs[n].validate(tok); err != nil {
				return nil, err
			}
			*dsts[n] = tok
			i = j
		}
	}

	if i >= len(line) || !isBlank(line[i]) {
		return fail("missing task command line")
	}
	rest := line[skipBlanks(line, i):]

	p := strings.IndexByte(rest, '#')
	if p < 0 {
		if rest == "" {
			return fail("missing task command line")
		}
		e.command = rest
		return e, nil
	}
	// The annotation separator is exactly one blank before the first '#';
	// further blanks remain part of the command.
	if p < 2 || !isBlank(rest[p-1]) {
		return fail("'#' inside task command line")
	}
	if p+1 >= len(rest) {
		return fail("empty trailing comment")
	}
	e.command = rest[:p-1]
	c := rest[p+1:]
	if isBlank(c[0]) {
		c = c[1:]
	} else {
		e.tight = true
	}
	e.comments = c
	e.hasComment = true
	return e, nil
}

// IsEntryLine reports whether line parses as an entry.
func IsEntryLine(line string) bool {
	_, err := Parse(line)
	return err == nil
}
