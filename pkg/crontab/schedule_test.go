package crontab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	t.Parallel()
	// Wednesday.
	from := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		line string
		want time.Time
	}{
		{"30 23 * * * df", time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)},
		{"*/15 * * * * df", time.Date(2026, 10, 14, 12, 15, 0, 0, time.UTC)},
		{"@hourly df", time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC)},
		{"@midnight df", time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		{"0 0 * * 7 df", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"0 0 * * 0 df", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"0 0 * * 6-7 df", time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"0 9 1 jan * df", time.Date(2027, 1, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.line)
			require.NoError(t, err)
			got, err := e.Next(from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRunReboot(t *testing.T) {
	t.Parallel()
	e, err := Parse("@reboot warmup.sh")
	require.NoError(t, err)
	_, err = e.Next(time.Now())
	assert.ErrorIs(t, err, ErrNoNextRun)
	assert.NoError(t, e.ValidateSchedule())
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()
	// Parsing is lenient about values inside ranges and lists.
	e, err := Parse("0 0-99 * * * df")
	require.NoError(t, err)
	err = e.ValidateSchedule()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.Next(time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	ok, err := Parse("*/5 8-17 * * MON-FRI df")
	require.NoError(t, err)
	assert.NoError(t, ok.ValidateSchedule())
}

func TestNormalizeSunday(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"7":     "0",
		"1,7":   "1,0",
		"5-7":   "5-6,0",
		"6-7":   "6,0",
		"7-7":   "0",
		"*/2":   "*/2",
		"0-7/2": "0-7/2",
		"MON":   "MON",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSunday(in), in)
	}
}
