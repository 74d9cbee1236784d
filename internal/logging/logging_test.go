package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, "text")

	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered:\n%s", out)
	}
	for _, s := range []string{"level=WARN", "msg=shown", "k=v"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelDebug, "json").Debug("dbg", "a", 1)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected json record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "dbg" || rec["level"] != "DEBUG" || rec["a"] != float64(1) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo, "text")
	fallback := Discard()

	if FromContext(context.Background(), fallback) != fallback {
		t.Fatalf("expected fallback for empty context")
	}

	ctx := WithContext(context.Background(), base.With("request_id", "123"))
	FromContext(ctx, fallback).Info("hello")
	if !strings.Contains(buf.String(), "request_id=123") {
		t.Fatalf("expected request-scoped attribute, got:\n%s", buf.String())
	}
}

func TestFromContext_NilFallbackIsDefault(t *testing.T) {
	if FromContext(context.Background(), nil) != slog.Default() {
		t.Fatalf("expected slog.Default() for nil fallback")
	}
	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected slog.Default() from OrDefault(nil)")
	}
}
