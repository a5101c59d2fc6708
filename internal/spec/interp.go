// SPDX-License-Identifier: MIT

package spec

import (
	"fmt"
	"strings"
)

// maxInterpolationDepth bounds recursive placeholder expansion. Ten levels
// matches the format family's reference implementations and turns any
// reference cycle into a deterministic error.
const maxInterpolationDepth = 10

// checkPlaceholders validates the interpolation syntax of a raw value
// without resolving references. The parser runs it on every assignment so
// malformed placeholders surface at parse time with a line number.
func checkPlaceholders(value string) error {
	for i := 0; i < len(value); i++ {
		if value[i] != '%' {
			continue
		}
		if i+1 >= len(value) {
			return fmt.Errorf("'%%' at end of value, expected '%%' or '('")
		}
		switch value[i+1] {
		case '%':
			i++
		case '(':
			end := strings.IndexByte(value[i+2:], ')')
			if end < 0 {
				return fmt.Errorf("unterminated placeholder %q", value[i:])
			}
			end += i + 2
			if name := strings.TrimSpace(value[i+2 : end]); name == "" {
				return fmt.Errorf("empty placeholder reference")
			}
			if end+1 >= len(value) || value[end+1] != 's' {
				return fmt.Errorf("placeholder %q must end in ')s'", value[i:min(end+2, len(value))])
			}
			i = end + 1
		default:
			return fmt.Errorf("'%%' must be followed by '%%' or '(', found %q", string(value[i+1]))
		}
	}
	return nil
}

// expandValue substitutes each `%(name)s` in value with the resolved value
// of name from the same section. key and line identify the entry owning
// value, for error reporting. depth starts at 1 for the top-level call.
func (s *Section) expandValue(value, key string, line, depth int) (string, error) {
	if depth > maxInterpolationDepth {
		return "", depthExceeded(s.Name, key, line)
	}
	if !strings.ContainsRune(value, '%') {
		return value, nil
	}

	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		// Syntax was validated at parse time; guard anyway for documents
		// built programmatically.
		if i+1 >= len(value) {
			return "", formatErr(line, "value of %q: '%%' at end of value", key)
		}
		if value[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		if value[i+1] != '(' {
			return "", formatErr(line, "value of %q: '%%' must be followed by '%%' or '('", key)
		}
		end := strings.IndexByte(value[i+2:], ')')
		if end < 0 {
			return "", formatErr(line, "value of %q: unterminated placeholder", key)
		}
		end += i + 2
		if end+1 >= len(value) || value[end+1] != 's' {
			return "", formatErr(line, "value of %q: placeholder must end in ')s'", key)
		}

		name := strings.TrimSpace(value[i+2 : end])
		ref, ok := s.Get(name)
		if !ok {
			return "", undefinedRef(s.Name, key, name, line)
		}
		if !ref.HasValue {
			return "", noValueRef(s.Name, key, name, line)
		}
		expanded, err := s.expandValue(ref.Value, ref.Key, ref.Line, depth+1)
		if err != nil {
			return "", err
		}
		b.WriteString(expanded)
		i = end + 1
	}
	return b.String(), nil
}
