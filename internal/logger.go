package internal

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromString builds a JSON slog logger from a level name. Unknown
// names fall back to info.
func GetLoggerFromString(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
