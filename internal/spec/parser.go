// SPDX-License-Identifier: MIT

package spec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads a document from r. It fails with a *FormatError carrying the
// offending line number on the first structural defect; no partial
// document is returned on failure.
func Parse(r io.Reader) (*Document, error) {
	doc := New()
	var current *Section

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		raw = strings.TrimSuffix(raw, "\r")

		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			name, err := parseHeader(line, lineNo)
			if err != nil {
				return nil, err
			}
			current = doc.EnsureSection(name)
			if current.Line == 0 {
				current.Line = lineNo
			}
		default:
			if current == nil {
				return nil, formatErr(lineNo, "assignment %q before any section header", line)
			}
			key, value, hasValue := splitAssignment(line)
			if key == "" {
				return nil, formatErr(lineNo, "assignment with empty key")
			}
			if hasValue {
				if err := checkPlaceholders(value); err != nil {
					return nil, formatErr(lineNo, "value of %q: %v", key, err)
				}
			}
			current.setEntry(Entry{Key: key, Value: value, HasValue: hasValue, Line: lineNo})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

// ParseString parses a document held in memory.
func ParseString(text string) (*Document, error) {
	return Parse(strings.NewReader(text))
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path) // #nosec G304 -- callers pass user-chosen spec paths by design
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// parseHeader extracts the section name from a trimmed `[name]` line.
func parseHeader(line string, lineNo int) (string, error) {
	if !strings.HasSuffix(line, "]") {
		return "", formatErr(lineNo, "unterminated section header %q", line)
	}
	name := strings.TrimSpace(line[1 : len(line)-1])
	if name == "" {
		return "", formatErr(lineNo, "empty section name")
	}
	return name, nil
}

// splitAssignment splits a trimmed non-header line at the first `=`.
// Lines without `=` are bare keys with no value.
func splitAssignment(line string) (key, value string, hasValue bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return line, "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}
