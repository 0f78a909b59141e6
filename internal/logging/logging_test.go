package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewWriter_Format(t *testing.T) {
	t.Parallel()

	var js bytes.Buffer
	NewWriter(&js, "info", "json").Info("hello", slog.String("k", "v"))
	if !strings.HasPrefix(js.String(), "{") {
		t.Errorf("json format output = %q", js.String())
	}

	var txt bytes.Buffer
	NewWriter(&txt, "info", "text").Info("hello", slog.String("k", "v"))
	if !strings.Contains(txt.String(), "k=v") {
		t.Errorf("text format output = %q", txt.String())
	}

	var quiet bytes.Buffer
	NewWriter(&quiet, "error", "json").Info("dropped")
	if quiet.Len() != 0 {
		t.Errorf("info record written at error level: %q", quiet.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext without a logger should return slog.Default()")
	}
}

func TestWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWriter(&buf, "info", "text"))
	ctx, log := With(ctx, slog.String("scope", "alpha"))

	log.Info("direct")
	FromContext(ctx).Info("via context")

	if got := strings.Count(buf.String(), "scope=alpha"); got != 2 {
		t.Errorf("scope attribute appeared %d times, want 2:\n%s", got, buf.String())
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "info", "text")
	log.Info("dial",
		slog.String("API_KEY", "sk-live-123"),
		slog.Group("qdrant", slog.String("token", "qd-456"), slog.String("host", "qdrant.internal")),
		slog.String("model", "llama3.1"),
	)

	out := buf.String()
	for _, secret := range []string{"sk-live-123", "qd-456"} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked: %s", secret, out)
		}
	}
	for _, keep := range []string{"qdrant.host=qdrant.internal", "model=llama3.1", Redacted} {
		if !strings.Contains(out, keep) {
			t.Errorf("output missing %q: %s", keep, out)
		}
	}
}

func TestNew_Source(t *testing.T) {
	t.Setenv("LOG_SOURCE", "true")
	t.Setenv("LOG_LEVEL", "error")
	if New().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("LOG_LEVEL=error should disable warn records")
	}
}
