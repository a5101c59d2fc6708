// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVersionOfLiteral(t *testing.T) {
	path := writeDocument(t, validDocument)
	if got := runVersionOf([]string{"-f", path}); got != 0 {
		t.Errorf("version-of = %d, want 0", got)
	}
}

func TestVersionOfFromSourceFile(t *testing.T) {
	document := `[app]
title = Demo App
package.name = demoapp
package.domain = org.demo
version.regex = __version__ = ['"](.*)['"]
version.filename = ./main.py
`
	path := writeDocument(t, document)
	source := filepath.Join(filepath.Dir(path), "main.py")
	if err := os.WriteFile(source, []byte("__version__ = \"2.0\"\n"), 0o600); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	if got := runVersionOf([]string{"-f", path}); got != 0 {
		t.Errorf("version-of with regex = %d, want 0", got)
	}
}

func TestVersionOfNoMethod(t *testing.T) {
	document := `[app]
title = Demo App
package.name = demoapp
package.domain = org.demo
`
	path := writeDocument(t, document)
	if got := runVersionOf([]string{"-f", path}); got != 1 {
		t.Errorf("version-of without versioning method = %d, want 1", got)
	}
}
