package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
)

// config is the CLI's environment-driven configuration.
type config struct {
	Home        string
	LogLevel    slog.Level
	SearchPaths []string
	History     string
}

// lookupFunc reads one setting, falling back to the optional default when
// it is unset or empty.
type lookupFunc func(name string, def ...string) string

func loadConfig() config {
	return configFrom(env.Str)
}

func configFrom(lookup lookupFunc) config {
	home := lookup("VYBE_HOME")
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".vybe")
		} else {
			home = filepath.Join(os.TempDir(), "vybe")
		}
	}
	cfg := config{
		Home:     home,
		LogLevel: parseLogLevel(lookup("VYBE_LOG_LEVEL", "error")),
		History:  lookup("VYBE_HISTORY", filepath.Join(home, "history")),
	}
	if paths := lookup("VYBE_PATH"); paths != "" {
		cfg.SearchPaths = filepath.SplitList(paths)
	}
	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
