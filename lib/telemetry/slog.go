package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog replaces the default logger with a text handler writing to
// stderr. debug toggles the level, everything else stays at Info so
// scraping noise doesn't drown user-facing output.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
