// Package logging builds docchat's [log/slog] logger and carries it through
// request and command contexts.
//
//	LOG_LEVEL   debug | info | warn | error   (default info)
//	LOG_FORMAT  json | text                   (default json)
//	LOG_SOURCE  true adds the calling file and line to every record
//
// Attributes whose key names a credential are replaced with [Redacted]
// before they reach the handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Redacted replaces the value of credential attributes.
const Redacted = "[REDACTED]"

// sensitiveKeys are attribute keys, compared case-insensitively, whose
// values never reach the output.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"password":      true,
	"secret":        true,
	"secret_key":    true,
	"token":         true,
}

type ctxKey struct{}

// New builds the process logger on stderr from LOG_LEVEL, LOG_FORMAT and
// LOG_SOURCE.
func New() *slog.Logger {
	source, _ := strconv.ParseBool(os.Getenv("LOG_SOURCE"))
	return newLogger(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), source)
}

// NewWriter builds a logger on w with an explicit level and format. Unknown
// values fall back to info and json.
func NewWriter(w io.Writer, level, format string) *slog.Logger {
	return newLogger(w, level, format, false)
}

func newLogger(w io.Writer, level, format string, source bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		AddSource:   source,
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// redact masks credential attributes at any group depth.
func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger in ctx, or [slog.Default] when there is
// none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With derives a logger from ctx carrying args and stores it back, so
// everything called with the returned context logs the same attributes.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	l := FromContext(ctx).With(args...)
	return WithLogger(ctx, l), l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
