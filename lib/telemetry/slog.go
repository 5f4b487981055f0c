package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const redactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{"secret", "password", "token", "cookie", "authorization"}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func redactAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]any, len(group))
		for i, a := range group {
			out[i] = redactAttr(a)
		}
		return slog.Group(attr.Key, out...)
	}
	return attr
}

// RedactingHandler replaces the value of any attribute whose key looks like a
// credential before handing the record to the next handler.
type RedactingHandler struct {
	next slog.Handler
}

func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(redactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func newHandler(w io.Writer, verbose, color bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return NewRedactingHandler(tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  verbose,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

// NewLogger builds an uncolored logger writing to `w`.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(newHandler(w, verbose, false))
}

// InitSlog sets the default slog logger, verbose enables debug logs.
func InitSlog(verbose bool) {
	_, noColor := os.LookupEnv("NO_COLOR")
	slog.SetDefault(slog.New(newHandler(os.Stderr, verbose, !noColor)))
}
