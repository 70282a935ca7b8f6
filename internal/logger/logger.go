package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/covu-marketplace-ledger/internal/config"
)

// NewLogger builds the process-wide slog.Logger: JSON on stdout, level
// from config, service name and environment stamped on every record.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		// Source locations only at debug; they are noise in production logs.
		AddSource: level == slog.LevelDebug,
	})

	log := slog.New(handler).With(
		"service", cfg.Application.Name,
		"env", cfg.Application.Env,
	)
	log.Info("logger initialized", "level", level)

	return log
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
