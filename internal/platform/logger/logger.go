package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured JSON logger. Services take *slog.Logger
// in their constructors rather than reaching for a package-level default.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
