package crontab

import (
	"context"
	"errors"
)

// Transport moves raw crontab text in and out of the scheduler store.
// Identity selection and privilege elevation are transport configuration.
//
// ReadRaw should report "no crontab for this identity" as ("", nil) or as
// an error matching ErrNoSchedule; both are loaded as an empty schedule.
type Transport interface {
	ReadRaw(ctx context.Context) (string, error)
	WriteRaw(ctx context.Context, content string) error
}

// StaticTransport serves fixed text and records writes. It backs dry runs
// and restores where the "read" side is not the live scheduler.
type StaticTransport struct {
	Content string
	Writes  []string
}

func (t *StaticTransport) ReadRaw(ctx context.Context) (string, error) {
	_ = ctx
	return t.Content, nil
}

func (t *StaticTransport) WriteRaw(ctx context.Context, content string) error {
	_ = ctx
	t.Writes = append(t.Writes, content)
	t.Content = content
	return nil
}

func asTransportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: op, Err: err}
}
