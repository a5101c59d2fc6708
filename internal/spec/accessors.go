// SPDX-License-Identifier: MIT

package spec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Resolve looks up key in section and expands its interpolation
// placeholders. Keys without a value resolve to the empty string. It fails
// with ErrNotFound when the section or key is absent and with a
// *ReferenceError when a placeholder cannot be expanded.
func (d *Document) Resolve(section, key string) (string, error) {
	s, ok := d.Section(section)
	if !ok {
		return "", fmt.Errorf("section [%s]: %w", section, ErrNotFound)
	}
	e, ok := s.Get(key)
	if !ok {
		return "", fmt.Errorf("[%s] %s: %w", section, key, ErrNotFound)
	}
	if !e.HasValue {
		return "", nil
	}
	return s.expandValue(e.Value, e.Key, e.Line, 1)
}

// ListSectionName returns the name of the section that appends items to
// the list value of key in section, one bare line per item.
func ListSectionName(section, key string) string {
	return section + ":" + key
}

// SplitListSection splits a `section:key` list-section name into its
// parts. ok is false for names without the separator or with an empty
// part.
func SplitListSection(name string) (section, key string, ok bool) {
	i := strings.Index(name, ":")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// GetList resolves the value of key, splits it on delim (default ","),
// trims each element and drops empty ones, then appends the items of the
// companion `[section:key]` list section in document order. A key that is
// absent but has a list section still yields the appended items.
func (d *Document) GetList(section, key, delim string) ([]string, error) {
	if delim == "" {
		delim = ","
	}

	var items []string
	value, err := d.Resolve(section, key)
	switch {
	case err == nil:
		for _, part := range strings.Split(value, delim) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	case errors.Is(err, ErrNotFound):
		// fall through to the list section
	default:
		return nil, err
	}

	if ls, ok := d.Section(ListSectionName(section, key)); ok {
		for _, e := range ls.Entries {
			if item := strings.TrimSpace(e.Key); item != "" {
				items = append(items, item)
			}
		}
	} else if err != nil {
		return nil, err
	}
	return items, nil
}

// GetDefault resolves key and returns fallback when the section or key is
// absent. Resolution failures are still reported.
func (d *Document) GetDefault(section, key, fallback string) (string, error) {
	v, err := d.Resolve(section, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// GetBool resolves key as a boolean. It accepts true/false, 1/0 and
// yes/no, case-insensitively. Absent keys yield fallback.
func (d *Document) GetBool(section, key string, fallback bool) (bool, error) {
	v, err := d.Resolve(section, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("[%s] %s: invalid boolean %q", section, key, v)
	}
}

// GetInt resolves key as an integer. Absent keys yield fallback.
func (d *Document) GetInt(section, key string, fallback int) (int, error) {
	v, err := d.Resolve(section, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: invalid integer %q", section, key, v)
	}
	return i, nil
}
