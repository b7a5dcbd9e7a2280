package config

import (
	"fmt"
	"strings"
	"time"

	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

type Config struct {
	Crontab CrontabConfig `json:"crontab"`
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`
	Daemon  DaemonConfig  `json:"daemon"`
	Watch   WatchConfig   `json:"watch"`
}

// CrontabConfig selects the managed crontab and how it is reached.
//
// When File is set the crontab is read and written directly as a file and
// the user/sudo settings are ignored. Otherwise the crontab binary is run:
//
//	user "" ............. crontab -l
//	user "x" ............ crontab -u x -l
//	user "x", sudo ...... sudo -n -u x crontab -l
type CrontabConfig struct {
	User       string `json:"user,omitempty"`
	Sudo       bool   `json:"sudo,omitempty"`
	Binary     string `json:"binary,omitempty"`      // default "crontab"
	SudoBinary string `json:"sudo_binary,omitempty"` // default "sudo"
	// Timeout is a Go duration string (e.g. "30s") or seconds. "0s" disables it.
	Timeout string `json:"timeout,omitempty"`
	File    string `json:"file,omitempty"`
	// StrayLines is one of fail, preserve, drop.
	StrayLines string `json:"stray_lines,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional audit/snapshot store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "/var/lib/crontabctl/store" }
type StorageConfig struct {
	Driver        string `json:"driver"`
	Path          string `json:"path"`
	BusyTimeout   string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	KeepSnapshots int    `json:"keep_snapshots,omitempty"`
}

// DaemonConfig lists the systemd units checked by "doctor".
type DaemonConfig struct {
	Units []string `json:"units,omitempty"`
}

// WatchConfig controls "crontabctl watch".
type WatchConfig struct {
	// Path of the spool file to watch. Defaults to crontab.file, then
	// /var/spool/cron/crontabs/<user>.
	Path       string `json:"path,omitempty"`
	Debounce   string `json:"debounce,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

const (
	DefaultTimeout       = 30 * time.Second
	DefaultBusyTimeout   = 5 * time.Second
	DefaultDebounce      = 250 * time.Millisecond
	DefaultKeepSnapshots = 20
	DefaultRatePerSec    = 2
	DefaultSpoolDir      = "/var/spool/cron/crontabs"
)

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Crontab: CrontabConfig{
			Binary:     "crontab",
			SudoBinary: "sudo",
			Timeout:    DefaultTimeout.String(),
			StrayLines: "fail",
		},
		Logging: LoggingConfig{Level: "info", Console: true},
		Storage: StorageConfig{
			Driver:        "none",
			BusyTimeout:   DefaultBusyTimeout.String(),
			KeepSnapshots: DefaultKeepSnapshots,
		},
		Daemon: DaemonConfig{Units: []string{"cron.service", "crond.service"}},
		Watch: WatchConfig{
			Debounce:   DefaultDebounce.String(),
			RatePerSec: DefaultRatePerSec,
		},
	}
}

// Validate checks enum values and duration fields.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("invalid config: nil")
	}
	if _, err := crontab.ParseStrayLinePolicy(c.Crontab.StrayLines); err != nil {
		return fmt.Errorf("crontab.stray_lines: %w", err)
	}
	if _, err := c.Crontab.TimeoutDuration(); err != nil {
		return err
	}
	if c.Crontab.Sudo && strings.TrimSpace(c.Crontab.User) == "" && strings.TrimSpace(c.Crontab.File) == "" {
		return fmt.Errorf("crontab.sudo requires crontab.user")
	}
	if _, ok := logx.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Storage.Driver)); d {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for driver %q", d)
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := c.Storage.BusyTimeoutDuration(); err != nil {
		return err
	}
	if c.Storage.KeepSnapshots < 0 {
		return fmt.Errorf("storage.keep_snapshots must be >= 0")
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		return err
	}
	if c.Watch.RatePerSec < 0 {
		return fmt.Errorf("watch.rate_per_sec must be >= 0")
	}
	return nil
}

// StrayPolicy returns the parsed crontab.stray_lines value.
func (c *Config) StrayPolicy() crontab.StrayLinePolicy {
	p, _ := crontab.ParseStrayLinePolicy(c.Crontab.StrayLines)
	return p
}

// WatchPath resolves the file watched for external edits.
func (c *Config) WatchPath() string {
	if p := strings.TrimSpace(c.Watch.Path); p != "" {
		return p
	}
	if p := strings.TrimSpace(c.Crontab.File); p != "" {
		return p
	}
	if u := strings.TrimSpace(c.Crontab.User); u != "" {
		return DefaultSpoolDir + "/" + u
	}
	return ""
}
