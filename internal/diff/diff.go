// Package diff renders line diffs between two versions of a crontab.
package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result is a line diff and its statistics.
type Result struct {
	Text    string
	Added   int
	Removed int
}

// Changed reports whether the two inputs differ line-wise.
func (r Result) Changed() bool { return r.Added > 0 || r.Removed > 0 }

// Summary returns a short human-readable description of the change.
func (r Result) Summary() string {
	if !r.Changed() {
		return "No changes"
	}
	parts := []string{}
	if r.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d lines", r.Added))
	}
	if r.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d lines", r.Removed))
	}
	return strings.Join(parts, ", ")
}

type Options struct {
	Color bool
	// Context is the number of unchanged lines kept around a change;
	// negative keeps all of them.
	Context int
}

// Lines diffs old and new line by line without color, keeping all context.
func Lines(oldText, newText string) Result {
	return LinesWith(oldText, newText, Options{Context: -1})
}

// LinesWith diffs old and new line by line. Added lines are prefixed with
// "+", removed ones with "-", unchanged ones with a blank.
func LinesWith(oldText, newText string, opt Options) Result {
	if oldText == newText {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	type row struct {
		op   diffmatchpatch.Operation
		text string
	}
	var rows []row
	var res Result
	for _, d := range diffs {
		for _, l := range splitKeep(d.Text) {
			rows = append(rows, row{op: d.Type, text: l})
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				res.Added++
			case diffmatchpatch.DiffDelete:
				res.Removed++
			}
		}
	}

	keep := make([]bool, len(rows))
	for i, r := range rows {
		if r.op != diffmatchpatch.DiffEqual || opt.Context < 0 {
			keep[i] = true
			continue
		}
		for j := max(0, i-opt.Context); j <= min(len(rows)-1, i+opt.Context); j++ {
			if rows[j].op != diffmatchpatch.DiffEqual {
				keep[i] = true
				break
			}
		}
	}

	var sb strings.Builder
	skipped := false
	for i, r := range rows {
		if !keep[i] {
			if !skipped {
				sb.WriteString(colorize(opt.Color, "@@ ... @@\n", color.FgCyan))
				skipped = true
			}
			continue
		}
		skipped = false
		switch r.op {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(colorize(opt.Color, "+"+r.text+"\n", color.FgGreen))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(colorize(opt.Color, "-"+r.text+"\n", color.FgRed))
		default:
			sb.WriteString(" " + r.text + "\n")
		}
	}
	res.Text = sb.String()
	return res
}

// splitKeep splits s into lines, dropping the empty element after a final
// newline.
func splitKeep(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func colorize(enabled bool, text string, attr color.Attribute) string {
	if !enabled {
		return text
	}
	return color.New(attr).Sprint(text)
}
