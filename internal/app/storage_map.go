package app

import (
	"time"

	"arxivrelay/internal/config"
	"arxivrelay/internal/storage"
	logx "arxivrelay/pkg/logx"
)

const sqliteBusyTimeout = time.Second

func mapStorageConfig(s config.StoreSettings) (storage.Config, bool) {
	switch s.Driver {
	case "", "none":
		return storage.Config{}, false
	case "sqlite", "sqlite3":
		return storage.Config{Driver: s.Driver, Path: s.Path, BusyTimeout: sqliteBusyTimeout}, true
	default:
		return storage.Config{Driver: s.Driver, Path: s.Path, DSN: s.DSN}, true
	}
}

func mapLogConfig(s config.LogSettings) logx.Config {
	return logx.Config{
		Level:   s.Level,
		Console: s.Console,
		File: logx.FileConfig{
			Enabled:    s.File != "",
			Path:       s.File,
			MaxSizeMB:  s.FileMaxMB,
			MaxBackups: s.FileMaxBackups,
			MaxAgeDays: s.FileMaxAgeDays,
		},
	}
}
