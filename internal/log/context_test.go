// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRunID(ctx, "run-9")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id: got %q", got)
	}
	if got := RunIDFromContext(ctx); got != "run-9" {
		t.Errorf("run id: got %q", got)
	}
}

func TestContextNilSafety(t *testing.T) {
	//nolint:staticcheck // nil context is exactly what is under test
	if got := RequestIDFromContext(nil); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
	//nolint:staticcheck
	ctx := ContextWithRunID(nil, "run-1")
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("expected run-1, got %q", got)
	}
}

func TestWithContextEnrichment(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-7")
	ctx = ContextWithRunID(ctx, "run-3")

	enriched := WithContext(ctx, base)
	enriched.Info().Msg("enriched")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-7"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if !strings.Contains(out, `"run_id":"run-3"`) {
		t.Errorf("missing run_id: %s", out)
	}
}

func TestWithContextNoFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	plain := WithContext(context.Background(), base)
	plain.Info().Msg("plain")

	out := buf.String()
	if strings.Contains(out, "request_id") || strings.Contains(out, "run_id") {
		t.Errorf("unexpected correlation fields: %s", out)
	}
}

func TestFromContextFallback(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	// A logger attached to the context wins over the base fallback.
	var buf bytes.Buffer
	attached := zerolog.New(&buf)
	ctx := attached.WithContext(context.Background())
	FromContext(ctx).Info().Msg("via-context")
	if !strings.Contains(buf.String(), "via-context") {
		t.Errorf("expected context logger to be used, got %q", buf.String())
	}
}
