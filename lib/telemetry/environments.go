package telemetry

import (
	"log/slog"
	"testing"
)

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// SetupForTesting routes slog into the test log at debug level for the
// duration of the test. Exporters are never started in tests.
func SetupForTesting(t testing.TB) {
	previous := slog.Default()
	slog.SetDefault(NewLogger(testWriter{t: t}, true))
	t.Cleanup(func() {
		slog.SetDefault(previous)
	})
}
