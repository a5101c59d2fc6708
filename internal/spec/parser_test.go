// SPDX-License-Identifier: MIT

package spec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packspec.spec")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp spec: %v", err)
	}
	return path
}

func TestParseBasicDocument(t *testing.T) {
	doc, err := ParseString("[app]\ntitle = X\nversion = 1.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	s := doc.Sections[0]
	if s.Name != "app" {
		t.Errorf("section name: got %q", s.Name)
	}
	if len(s.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s.Entries))
	}
	if e, _ := s.Get("title"); e.Value != "X" || e.Line != 2 {
		t.Errorf("title: got %+v", e)
	}
	if e, _ := s.Get("version"); e.Value != "1.0.0" || e.Line != 3 {
		t.Errorf("version: got %+v", e)
	}
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, doc *Document)
	}{
		{
			name:  "comments and blank lines are discarded",
			input: "# leading comment\n\n[app]\n  # indented comment\ntitle = X\n\n",
			check: func(t *testing.T, doc *Document) {
				s := doc.Sections[0]
				if len(s.Entries) != 1 {
					t.Fatalf("expected 1 entry, got %d", len(s.Entries))
				}
			},
		},
		{
			name:  "hash inside a value is literal",
			input: "[app]\ntitle = X # not a comment",
			check: func(t *testing.T, doc *Document) {
				e, _ := doc.Sections[0].Get("title")
				if e.Value != "X # not a comment" {
					t.Errorf("value: got %q", e.Value)
				}
			},
		},
		{
			name:  "duplicate key keeps position, last value wins",
			input: "[app]\ntitle = first\norientation = portrait\ntitle = second",
			check: func(t *testing.T, doc *Document) {
				s := doc.Sections[0]
				if got := s.Keys(); got[0] != "title" || got[1] != "orientation" {
					t.Errorf("key order: %v", got)
				}
				e, _ := s.Get("title")
				if e.Value != "second" || e.Line != 4 {
					t.Errorf("title entry: %+v", e)
				}
			},
		},
		{
			name:  "duplicate section header reopens the section",
			input: "[app]\ntitle = X\n[packspec]\nlog_level = 2\n[app]\nversion = 1.0",
			check: func(t *testing.T, doc *Document) {
				if len(doc.Sections) != 2 {
					t.Fatalf("expected 2 sections, got %v", doc.SectionNames())
				}
				s, _ := doc.Section("app")
				if !s.Has("title") || !s.Has("version") {
					t.Errorf("merged section keys: %v", s.Keys())
				}
			},
		},
		{
			name:  "crlf line endings",
			input: "[app]\r\ntitle = X\r\n",
			check: func(t *testing.T, doc *Document) {
				e, _ := doc.Sections[0].Get("title")
				if e.Value != "X" {
					t.Errorf("value: got %q", e.Value)
				}
			},
		},
		{
			name:  "utf-8 bom is stripped",
			input: "\ufeff[app]\ntitle = X",
			check: func(t *testing.T, doc *Document) {
				if _, ok := doc.Section("app"); !ok {
					t.Errorf("sections: %v", doc.SectionNames())
				}
			},
		},
		{
			name:  "bare key has no value",
			input: "[app:source.exclude_patterns]\nlicense\ndata/audio/*.wav",
			check: func(t *testing.T, doc *Document) {
				s := doc.Sections[0]
				if len(s.Entries) != 2 {
					t.Fatalf("entries: %v", s.Keys())
				}
				if e := s.Entries[0]; e.HasValue || e.Key != "license" {
					t.Errorf("bare entry: %+v", e)
				}
			},
		},
		{
			name:  "empty value after equals",
			input: "[app]\nicon.filename =",
			check: func(t *testing.T, doc *Document) {
				e, _ := doc.Sections[0].Get("icon.filename")
				if !e.HasValue || e.Value != "" {
					t.Errorf("entry: %+v", e)
				}
			},
		},
		{
			name:  "value keeps internal whitespace, trims edges",
			input: "[app]\ntitle =   Batch  Counter  ",
			check: func(t *testing.T, doc *Document) {
				e, _ := doc.Sections[0].Get("title")
				if e.Value != "Batch  Counter" {
					t.Errorf("value: got %q", e.Value)
				}
			},
		},
		{
			name:  "keys are case sensitive",
			input: "[app]\nTitle = upper\ntitle = lower",
			check: func(t *testing.T, doc *Document) {
				s := doc.Sections[0]
				if len(s.Entries) != 2 {
					t.Fatalf("entries: %v", s.Keys())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.input)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tt.check(t, doc)
		})
	}
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"assignment before any section", "title = X\n[app]", 1},
		{"bare key before any section", "# header\nlicense", 2},
		{"unterminated section header", "[app]\n[packspec\nlog_level = 1", 2},
		{"header with trailing text", "[app] extra", 1},
		{"empty section name", "[]", 1},
		{"whitespace section name", "[   ]", 1},
		{"empty key", "[app]\n= value", 2},
		{"unterminated placeholder", "[app]\nicon = %(source.dir", 2},
		{"percent at end of value", "[app]\nprogress = 50%", 2},
		{"percent before letter", "[app]\nprogress = 50% done", 2},
		{"placeholder without conversion", "[app]\nicon = %(dir)", 2},
		{"placeholder with wrong conversion", "[app]\napi = %(level)d", 2},
		{"empty placeholder", "[app]\nicon = %()s", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.input)
			if err == nil {
				t.Fatalf("expected error, got document %v", doc.SectionNames())
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T: %v", err, err)
			}
			if fe.Line != tt.wantLine {
				t.Errorf("line: got %d want %d (%v)", fe.Line, tt.wantLine, err)
			}
			if doc != nil {
				t.Errorf("expected nil document on error")
			}
		})
	}
}

func TestParseEscapedPercentIsValid(t *testing.T) {
	doc, err := ParseString("[app]\nprogress = 50%% done")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e, _ := doc.Sections[0].Get("progress")
	if e.Value != "50%% done" {
		t.Errorf("raw value: got %q", e.Value)
	}
}

func TestParseFile(t *testing.T) {
	path := writeTempSpec(t, "[app]\ntitle = X\n")
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if _, ok := doc.Section("app"); !ok {
		t.Errorf("sections: %v", doc.SectionNames())
	}

	if _, err := ParseFile(path + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseFileErrorIncludesPath(t *testing.T) {
	path := writeTempSpec(t, "title = X\n")
	_, err := ParseFile(path)
	if err == nil {
		t.Fatal("expected format error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error should cite the file path: %v", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Errorf("expected wrapped *FormatError, got %v", err)
	}
}
