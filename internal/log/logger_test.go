// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	// Claim the sync.Once before any test can trigger the lazy default.
	Configure(Config{Level: "debug", Service: "packspec-test", Version: "v0.0.0-test"})
	os.Exit(m.Run())
}

func TestConfigureIsOnce(t *testing.T) {
	// The second call must not replace the base logger.
	Configure(Config{Service: "other-service"})

	var buf bytes.Buffer
	l := Base().Output(&buf)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["service"] != "packspec-test" {
		t.Errorf("expected service packspec-test, got %v", entry["service"])
	}
	if entry["version"] != "v0.0.0-test" {
		t.Errorf("expected version v0.0.0-test, got %v", entry["version"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent("parser").Output(&buf)
	l.Info().Msg("parsing")

	out := buf.String()
	if !strings.Contains(out, `"component":"parser"`) {
		t.Errorf("expected component field, got %s", out)
	}
	if !strings.Contains(out, `"message":"parsing"`) {
		t.Errorf("expected message field, got %s", out)
	}
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	l := Derive(func(ctx *zerolog.Context) {
		*ctx = ctx.Str(FieldSection, "app").Str(FieldKey, "title")
	}).Output(&buf)
	l.Debug().Msg("lookup")

	out := buf.String()
	if !strings.Contains(out, `"section":"app"`) || !strings.Contains(out, `"key":"title"`) {
		t.Errorf("expected derived fields, got %s", out)
	}
}

func TestDeriveNilBuilder(t *testing.T) {
	var buf bytes.Buffer
	l := Derive(nil).Output(&buf)
	l.Info().Msg("plain")
	if !strings.Contains(buf.String(), `"message":"plain"`) {
		t.Errorf("expected message, got %s", buf.String())
	}
}
