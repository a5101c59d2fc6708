// SPDX-License-Identifier: MIT

package schema

import (
	"strings"
	"testing"

	"github.com/packspec/packspec/internal/spec"
)

func mustParse(t *testing.T, content string) *spec.Document {
	t.Helper()
	doc, err := spec.ParseString(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

// validInput keeps [app] last so tests can append entries to it.
const validInput = `[packspec]
log_level = 1

[app]
title = Demo App
package.name = demoapp
package.domain = org.demo
version = 1.0.0
`

func TestValidateOK(t *testing.T) {
	report, err := Validate(mustParse(t, validInput))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Valid() {
		t.Fatalf("unexpected errors: %v", report.Err())
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	report, err := Validate(mustParse(t, "[app]\nversion = 1.0\n"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	verr := report.Err()
	if verr == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"app.title", "app.package.name", "app.package.domain"} {
		if !strings.Contains(verr.Error(), want) {
			t.Errorf("error %q does not mention %s", verr.Error(), want)
		}
	}
}

func TestValidateVersioning(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name:  "literal version",
			extra: "version = 1.0\n",
		},
		{
			name:  "regex and filename",
			extra: "version.regex = __version__ = ['\"](.*)['\"]\nversion.filename = main.py\n",
		},
		{
			name:    "version conflicts with regex",
			extra:   "version = 1.0\nversion.regex = x(.*)x\nversion.filename = main.py\n",
			wantErr: "conflicts with version.regex",
		},
		{
			name:    "regex without filename",
			extra:   "version.regex = x(.*)x\n",
			wantErr: "app.version.filename",
		},
		{
			name:    "filename without regex",
			extra:   "version.filename = main.py\n",
			wantErr: "app.version.regex",
		},
		{
			name:    "no method at all",
			extra:   "",
			wantErr: "no versioning method",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "[app]\ntitle = T\npackage.name = t\npackage.domain = org.t\n" + tt.extra
			report, err := Validate(mustParse(t, input))
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			verr := report.Err()
			if tt.wantErr == "" {
				if verr != nil {
					t.Fatalf("unexpected errors: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation errors")
			}
			if !strings.Contains(verr.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", verr.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateTypedValues(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"bad bool", "fullscreen = maybe\n", "must be a boolean"},
		{"good bool", "fullscreen = yes\n", ""},
		{"bad int", "android.api = thirty\n", "must be an integer"},
		{"good int", "android.api = 33\n", ""},
		{"bad enum", "orientation = upside_down\n", "app.orientation"},
		{"good enum", "orientation = landscape\n", ""},
		{"empty value skipped", "android.permissions =\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput + tt.extra
			report, err := Validate(mustParse(t, input))
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			verr := report.Err()
			if tt.wantErr == "" {
				if verr != nil {
					t.Fatalf("unexpected errors: %v", verr)
				}
				return
			}
			if verr == nil || !strings.Contains(verr.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", verr, tt.wantErr)
			}
		})
	}
}

func TestValidateLogLevelVocabulary(t *testing.T) {
	for _, level := range []string{"0", "1", "2", "error", "info", "debug"} {
		input := strings.Replace(validInput, "log_level = 1", "log_level = "+level, 1)
		report, err := Validate(mustParse(t, input))
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if !report.Valid() {
			t.Errorf("log_level %q rejected: %v", level, report.Err())
		}
	}

	input := strings.Replace(validInput, "log_level = 1", "log_level = verbose", 1)
	report, err := Validate(mustParse(t, input))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Valid() {
		t.Error("log_level verbose accepted")
	}
}

func TestValidateAPILevels(t *testing.T) {
	report, err := Validate(mustParse(t, validInput+"android.api = 19\nandroid.minapi = 21\n"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	verr := report.Err()
	if verr == nil || !strings.Contains(verr.Error(), "android.minapi") {
		t.Errorf("error = %v, want android.minapi mention", verr)
	}

	report, err = Validate(mustParse(t, validInput+"android.api = 33\nandroid.minapi = 21\n"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Valid() {
		t.Errorf("valid API levels rejected: %v", report.Err())
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain string
		ok     bool
	}{
		{"org.example", true},
		{"org.example.apps", true},
		{"example", false},
		{"org..example", false},
		{".example", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			input := strings.Replace(validInput, "package.domain = org.demo", "package.domain = "+tt.domain, 1)
			report, err := Validate(mustParse(t, input))
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if report.Valid() != tt.ok {
				t.Errorf("domain %q: valid = %v, want %v (err: %v)", tt.domain, report.Valid(), tt.ok, report.Err())
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	input := validInput + "banana = 1\nandroid.sdk = 24\n\n[custom]\nkey = v\n\n[app:requirements]\nsqlite3\n\n[app:title]\nitem\n"
	report, err := Validate(mustParse(t, input))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Valid() {
		t.Fatalf("unexpected errors: %v", report.Err())
	}

	wantSubstrings := map[string]string{
		"app.banana":      "unknown key",
		"app.android.sdk": "use android.api instead",
		"custom":          "unrecognized section",
		"app:title":       "non-list key",
	}
	for path, substr := range wantSubstrings {
		found := false
		for _, w := range report.Warnings {
			if w.Path == path && strings.Contains(w.Message, substr) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing warning %s: %q in %v", path, substr, report.Warnings)
		}
	}

	// The well-formed list section produces no warning.
	for _, w := range report.Warnings {
		if w.Path == "app:requirements" {
			t.Errorf("unexpected warning for app:requirements: %v", w)
		}
	}
}

func TestValidateSkipsOverlays(t *testing.T) {
	input := validInput + "\n[app@demo]\nandroid.api = not-a-number\n"
	report, err := Validate(mustParse(t, input))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Valid() {
		t.Errorf("overlay content leaked into validation: %v", report.Err())
	}
}

func TestValidateUnresolvable(t *testing.T) {
	input := "[app]\ntitle = T\npackage.name = t\npackage.domain = org.t\nversion = %(missing)s\n"
	report, err := Validate(mustParse(t, input))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	verr := report.Err()
	if verr == nil || !strings.Contains(verr.Error(), "unresolvable") {
		t.Errorf("error = %v, want unresolvable mention", verr)
	}
}

func TestDeprecations(t *testing.T) {
	input := validInput + "android.sdk = 24\nandroid.arch = armeabi-v7a\n"
	reg, err := GetRegistry()
	if err != nil {
		t.Fatalf("GetRegistry: %v", err)
	}

	got := reg.Deprecations(mustParse(t, input))
	if len(got) != 2 {
		t.Fatalf("Deprecations = %d fields, want 2", len(got))
	}
	if got[0].Key != "android.sdk" || got[0].ReplacedBy != "android.api" {
		t.Errorf("first deprecation = %+v", got[0])
	}
	if got[1].Key != "android.arch" || got[1].ReplacedBy != "android.archs" {
		t.Errorf("second deprecation = %+v", got[1])
	}
}
