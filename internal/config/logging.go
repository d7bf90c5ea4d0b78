package config

import (
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel overrides the default log level when set.
const EnvLogLevel = "BOOTKIT_LOG_LEVEL"

const defaultLogLevel = slog.LevelInfo

// SetupLogging installs the process-wide logger. The level comes from the
// flag value, then the BOOTKIT_LOG_LEVEL environment variable, then the
// built-in default. An unrecognized override silently falls back to the
// default instead of failing startup.
func SetupLogging(flagLevel string, pretty bool) {
	level := defaultLogLevel
	if override := flagLevel; override != "" {
		level = parseLevel(override)
	} else if env := os.Getenv(EnvLogLevel); env != "" {
		level = parseLevel(env)
	}

	opts := &slog.HandlerOptions{Level: level}
	if !pretty {
		// the journal stamps every line already
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "1":
		return slog.LevelError
	case "warn", "2":
		return slog.LevelWarn
	case "info", "3":
		return slog.LevelInfo
	case "debug", "4":
		return slog.LevelDebug
	case "trace", "5":
		// slog has no trace level; everything below debug is emitted
		return slog.LevelDebug - 4
	default:
		return defaultLogLevel
	}
}
