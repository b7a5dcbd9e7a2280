package crontab

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	logx "crontabmgr/pkg/logx"
)

// StrayLinePolicy decides what happens to non-entry lines found after the
// first entry.
type StrayLinePolicy int

const (
	// StrayFail rejects the load with a *FormatError naming the line.
	StrayFail StrayLinePolicy = iota
	// StrayPreserve keeps the line verbatim at its position.
	StrayPreserve
	// StrayDrop discards the line (logged at warn).
	StrayDrop
)

func (p StrayLinePolicy) String() string {
	switch p {
	case StrayPreserve:
		return "preserve"
	case StrayDrop:
		return "drop"
	default:
		return "fail"
	}
}

// ParseStrayLinePolicy maps "fail", "preserve" and "drop"; "" means fail.
func ParseStrayLinePolicy(s string) (StrayLinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return StrayFail, nil
	case "preserve", "keep":
		return StrayPreserve, nil
	case "drop", "ignore":
		return StrayDrop, nil
	}
	return StrayFail, &ValidationError{Field: "stray line policy", Value: s, Reason: "use fail, preserve or drop"}
}

type Option func(*Repository)

func WithStrayLines(p StrayLinePolicy) Option {
	return func(r *Repository) { r.stray = p }
}

func WithLogger(log logx.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// item is either an entry or a preserved stray line.
type item struct {
	entry *Entry
	raw   string
}

// Repository is the in-memory model of one crontab: the leading header
// text plus the ordered entries. It is owned by a single caller and is not
// safe for concurrent use.
type Repository struct {
	transport Transport
	stray     StrayLinePolicy
	log       logx.Logger

	header string
	items  []item
	source string
}

// NewRepository binds an empty repository to t. Call Load to populate it.
func NewRepository(t Transport, opts ...Option) *Repository {
	r := &Repository{transport: t}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	return r
}

// Open creates a repository and loads it.
func Open(ctx context.Context, t Transport, opts ...Option) (*Repository, error) {
	r := NewRepository(t, opts...)
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Load replaces the in-memory state with the transport's current text.
// On error the previous state is kept.
func (r *Repository) Load(ctx context.Context) error {
	if r.transport == nil {
		return &TransportError{Op: "read", Err: errors.New("no transport configured")}
	}
	text, err := r.transport.ReadRaw(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSchedule) {
			return asTransportError("read", err)
		}
		text = ""
	}
	header, items, err := r.parse(text)
	if err != nil {
		return err
	}
	r.header, r.items, r.source = header, items, text
	r.log.Debug("crontab loaded",
		logx.Int("entries", r.Len()),
		logx.Int("header_bytes", len(header)),
		logx.String("stray_lines", r.stray.String()),
	)
	return nil
}

// splitLines splits text into lines. A terminating newline does not
// produce a trailing empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

const strayHint = "non-entry lines after the first entry need stray_lines: preserve (--stray-lines preserve) or drop"

func (r *Repository) parse(text string) (string, []item, error) {
	var (
		header strings.Builder
		items  []item
		inHead = true
	)
	for n, line := range splitLines(text) {
		e, err := Parse(line)
		if err == nil {
			inHead = false
			items = append(items, item{entry: e})
			continue
		}
		if inHead {
			header.WriteString(line)
			header.WriteByte('\n')
			continue
		}
		switch r.stray {
		case StrayPreserve:
			items = append(items, item{raw: line})
		case StrayDrop:
			r.log.Warn("dropping non-entry line", logx.Int("line", n+1), logx.String("text", line))
		default:
			fe := &FormatError{Line: line, LineNo: n + 1, Hint: strayHint}
			var pe *FormatError
			if errors.As(err, &pe) {
				fe.Reason = pe.Reason
			} else {
				fe.Reason = err.Error()
			}
			return "", nil, fe
		}
	}
	return header.String(), items, nil
}

// Header returns the preserved leading text, newline-terminated per line.
func (r *Repository) Header() string { return r.header }

// SetHeader replaces the leading text. A missing final newline is added.
func (r *Repository) SetHeader(h string) {
	if h != "" && !strings.HasSuffix(h, "\n") {
		h += "\n"
	}
	r.header = h
}

// Source returns the text read by the last Load or written by the last Persist.
func (r *Repository) Source() string { return r.source }

// Entries returns the held entries in order. The slice is fresh; the
// entries are shared with the repository.
func (r *Repository) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.items))
	for _, it := range r.items {
		if it.entry != nil {
			out = append(out, it.entry)
		}
	}
	return out
}

func (r *Repository) Len() int {
	n := 0
	for _, it := range r.items {
		if it.entry != nil {
			n++
		}
	}
	return n
}

// FindByPattern returns, in order, the entries whose formatted line matches
// the regular expression (RE2 syntax).
func (r *Repository) FindByPattern(pattern string) ([]*Entry, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ValidationError{Field: "pattern", Value: pattern, Reason: "not a valid regular expression", Err: err}
	}
	return r.Find(re), nil
}

// Find is FindByPattern for a compiled expression. Entries that cannot be
// formatted never match.
func (r *Repository) Find(re *regexp.Regexp) []*Entry {
	var out []*Entry
	for _, e := range r.Entries() {
		line, err := e.Format()
		if err != nil {
			continue
		}
		if re.MatchString(line) {
			out = append(out, e)
		}
	}
	return out
}

// AddEntry appends e. Duplicates are allowed.
func (r *Repository) AddEntry(e *Entry) {
	if e == nil {
		return
	}
	r.items = append(r.items, item{entry: e})
}

// RemoveEntry removes e itself when held, otherwise the first entry equal
// to it. It returns *NotFoundError when neither exists.
func (r *Repository) RemoveEntry(e *Entry) error {
	if e == nil {
		return &NotFoundError{}
	}
	idx := -1
	for i, it := range r.items {
		if it.entry == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, it := range r.items {
			if it.entry != nil && it.entry.Equal(e) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return &NotFoundError{Entry: e}
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	return nil
}

// Render serializes the model: header, then one line per item.
func (r *Repository) Render() (string, error) {
	var b strings.Builder
	b.WriteString(r.header)
	n := 0
	for _, it := range r.items {
		if it.entry == nil {
			b.WriteString(it.raw)
			b.WriteByte('\n')
			continue
		}
		line, err := it.entry.Format()
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				cp := *ve
				cp.Reason = fmt.Sprintf("entry %d: %s", n, ve.Reason)
				return "", &cp
			}
			return "", err
		}
		b.WriteString(line)
		b.WriteByte('\n')
		n++
	}
	return b.String(), nil
}

// Persist writes the whole model through the transport in a single call.
// The write is issued even when nothing changed.
func (r *Repository) Persist(ctx context.Context) error {
	if r.transport == nil {
		return &TransportError{Op: "write", Err: errors.New("no transport configured")}
	}
	text, err := r.Render()
	if err != nil {
		return err
	}
	if err := r.transport.WriteRaw(ctx, text); err != nil && !errors.Is(err, ErrNoSchedule) {
		return asTransportError("write", err)
	}
	r.source = text
	r.log.Debug("crontab persisted", logx.Int("entries", r.Len()), logx.Int("bytes", len(text)))
	return nil
}
