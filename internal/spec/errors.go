// SPDX-License-Identifier: MIT

package spec

import (
	"errors"
	"fmt"
)

// ErrNotFound classifies lookups of sections or keys that are not present
// in the document. Use errors.Is(err, ErrNotFound) instead of string matching.
var ErrNotFound = errors.New("not found")

// FormatError reports a structural defect in the document text: an
// assignment outside any section, an unparseable section header, or
// malformed interpolation syntax inside a value.
type FormatError struct {
	Line int    // 1-based line number of the offending line
	Msg  string // human-readable description
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func formatErr(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ReferenceError reports a failed interpolation: the placeholder names a
// key that is undefined in the section, or expansion exceeded the depth
// limit (which covers reference cycles).
type ReferenceError struct {
	Section string // section the resolution ran in
	Key     string // key whose value contains the failing reference
	Ref     string // the referenced key
	Line    int    // defining line of the entry that holds the reference
	Msg     string // human-readable description
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("line %d: [%s] %s: %s", e.Line, e.Section, e.Key, e.Msg)
}

func undefinedRef(section, key, ref string, line int) *ReferenceError {
	return &ReferenceError{
		Section: section,
		Key:     key,
		Ref:     ref,
		Line:    line,
		Msg:     fmt.Sprintf("interpolation references undefined key %q", ref),
	}
}

func noValueRef(section, key, ref string, line int) *ReferenceError {
	return &ReferenceError{
		Section: section,
		Key:     key,
		Ref:     ref,
		Line:    line,
		Msg:     fmt.Sprintf("interpolation references key %q which has no value", ref),
	}
}

func depthExceeded(section, key string, line int) *ReferenceError {
	return &ReferenceError{
		Section: section,
		Key:     key,
		Line:    line,
		Msg:     fmt.Sprintf("interpolation exceeds %d levels (reference cycle?)", maxInterpolationDepth),
	}
}
