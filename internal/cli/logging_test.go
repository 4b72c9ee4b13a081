package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		want     slog.Level
		wantName string
		wantErr  bool
	}{
		{"", slog.LevelWarn, "warn", false},
		{"INFO", slog.LevelInfo, "info", false},
		{"debug", slog.LevelDebug, "debug", false},
		{"warn", slog.LevelWarn, "warn", false},
		{"warning", slog.LevelWarn, "warn", false},
		{"error", slog.LevelError, "error", false},
		{"err", slog.LevelError, "error", false},
		{"verbose", slog.LevelWarn, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			level, name, err := parseLogLevel(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, level)
			assert.Equal(t, tc.wantName, name)
		})
	}
}

func TestNewLoggerTagsInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo)
	logger.Info("hello")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "invocation=")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestInvalidLogLevelFails(t *testing.T) {
	h := newHarness(t)
	res := h.run(t, nil, "--log-level", "verbose", "ask", "--dry-run", "x")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid log level")
	assert.Equal(t, 0, h.runner.calls)
}

func TestLogLevelFromEnvironment(t *testing.T) {
	h := newHarness(t)
	h.vars[EnvLogLevel] = "debug"
	res := h.run(t, nil, "ask", "--dry-run", "x")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "route resolved")
}
