package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// EnvLogLevel sets the diagnostic log level when --log-level is not given.
const EnvLogLevel = "PROXMESH_LOG_LEVEL"

func parseLogLevel(input string) (slog.Level, string, error) {
	level := strings.ToLower(strings.TrimSpace(input))
	switch level {
	case "", "warn", "warning":
		return slog.LevelWarn, "warn", nil
	case "info":
		return slog.LevelInfo, "info", nil
	case "debug":
		return slog.LevelDebug, "debug", nil
	case "error", "err":
		return slog.LevelError, "error", nil
	default:
		return slog.LevelWarn, "", fmt.Errorf("unsupported log level %q", input)
	}
}

// newLogger returns a text logger on w tagged with a fresh invocation id.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return logger.With("invocation", uuid.New().String()[:8])
}
