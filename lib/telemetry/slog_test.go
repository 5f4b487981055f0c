package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true)

	logger.Info(
		"login submitted",
		"account", "u1",
		"secret", "p1-hunter2",
		slog.Group("request", "cookie", "sid=abc", "path", "/login"),
	)
	logger.With("user_password", "p1-hunter2").Debug("with attrs")

	out := buf.String()
	require.NotContains(t, out, "p1-hunter2")
	require.NotContains(t, out, "sid=abc")
	require.Contains(t, out, "account=u1")
	require.Contains(t, out, "request.path=/login")
	require.Contains(t, out, redactedValue)
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	require.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown")
	require.Contains(t, buf.String(), "shown")
}
