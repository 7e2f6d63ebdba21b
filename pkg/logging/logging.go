// Package logging configures structured logging with log/slog.
//
// Local development gets colored output via tint; deployments that ship logs
// to a collector select JSON with LOG_FORMAT=json.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options selects the handler and level.
type Options struct {
	Level   string // debug, info, warn, error (default: info)
	Format  string // text|json (default: text)
	Colored bool   // colored text output via tint
}

// New builds a logger from the given options and installs it as the slog
// default, so package-level slog calls land on the same handler.
func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	var handler slog.Handler
	switch {
	case strings.EqualFold(opts.Format, "json"):
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case opts.Colored:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
