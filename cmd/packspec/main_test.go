// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"path/filepath"
	"testing"
)

const validDocument = `[app]
title = Demo App
package.name = demoapp
package.domain = org.demo
version = 1.2.3

[packspec]
log_level = error
`

// writeDocument writes content into a fresh temp dir and returns the
// document path.
func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packspec.spec")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no_args_prints_usage", args: nil, want: 0},
		{name: "help_flag", args: []string{"-h"}, want: 0},
		{name: "help_word", args: []string{"help"}, want: 0},
		{name: "version", args: []string{"version"}, want: 0},
		{name: "unknown_subcommand", args: []string{"frobnicate"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	path := writeDocument(t, validDocument)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "plain_value", args: []string{"-f", path, "app.title"}, want: 0},
		{name: "dotted_key", args: []string{"-f", path, "app.package.name"}, want: 0},
		{name: "list_value", args: []string{"-f", path, "-list", "app.requirements"}, want: 0},
		{name: "missing_key", args: []string{"-f", path, "app.nope"}, want: 1},
		{name: "target_without_dot", args: []string{"-f", path, "title"}, want: 2},
		{name: "no_target", args: []string{"-f", path}, want: 2},
		{name: "too_many_targets", args: []string{"-f", path, "app.title", "app.version"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runGet(tt.args); got != tt.want {
				t.Errorf("runGet(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
