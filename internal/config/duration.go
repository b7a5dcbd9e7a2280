package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDuration accepts a Go duration string or a bare number of seconds.
// Empty is zero; negative values are rejected.
func parseDuration(key, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	return d, nil
}

func durationOr(key, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(key, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}

// TimeoutDuration returns crontab.timeout. Zero disables the timeout.
func (c CrontabConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("crontab.timeout", c.Timeout)
}

func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return durationOr("storage.busy_timeout", c.BusyTimeout, DefaultBusyTimeout)
}

func (c WatchConfig) DebounceDuration() (time.Duration, error) {
	return durationOr("watch.debounce", c.Debounce, DefaultDebounce)
}
