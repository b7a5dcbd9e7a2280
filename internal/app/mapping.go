package app

import (
	"fmt"
	"strings"

	"crontabmgr/internal/config"
	"crontabmgr/internal/storage"
	"crontabmgr/internal/transport"
	"crontabmgr/pkg/crontab"
	logx "crontabmgr/pkg/logx"
)

// LogConfig maps the logging section onto logx.
func LogConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path, KeepSnapshots: sc.KeepSnapshots}, true, nil
	case "sqlite", "sqlite3":
		busy, err := sc.BusyTimeoutDuration()
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, KeepSnapshots: sc.KeepSnapshots}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// mapTransport returns the transport and the identity label used in the
// audit trail: the crontab owner ("" for the runtime user) or
// "file:<path>".
func mapTransport(cfg *config.Config, log logx.Logger) (crontab.Transport, string, error) {
	cc := cfg.Crontab
	if path := strings.TrimSpace(cc.File); path != "" {
		return transport.NewFile(path, log), "file:" + path, nil
	}
	timeout, err := cc.TimeoutDuration()
	if err != nil {
		return nil, "", err
	}
	user := strings.TrimSpace(cc.User)
	t := transport.NewExec(transport.ExecConfig{
		User:        user,
		Sudo:        cc.Sudo,
		CrontabPath: cc.Binary,
		SudoPath:    cc.SudoBinary,
		Timeout:     timeout,
	}, log)
	return t, user, nil
}
