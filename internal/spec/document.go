// SPDX-License-Identifier: MIT

// Package spec implements the sectioned key-value document format used by
// packaging specification files: bracketed section headers, `key = value`
// assignments, `#` comment lines, and `%(key)s` interpolation between keys
// of the same section.
package spec

import (
	"fmt"
	"strings"
)

// Entry is a single key-value pair within a section.
type Entry struct {
	Key      string
	Value    string
	HasValue bool // false for bare `key` lines (no `=` present)
	Line     int  // 1-based line of the defining assignment, 0 if synthetic
}

// Section is a named, ordered group of entries. Keys are unique within a
// section; assigning an existing key replaces its value in place.
type Section struct {
	Name    string
	Entries []Entry
	Line    int // 1-based line of the header, 0 if synthetic
}

// Document is an ordered sequence of sections with unique names.
type Document struct {
	Sections []*Section
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Section returns the named section, or false if it does not exist.
func (d *Document) Section(name string) (*Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// EnsureSection returns the named section, creating and appending it first
// if necessary. Re-using an existing name keeps section names unique even
// when the source text repeats a header.
func (d *Document) EnsureSection(name string) *Section {
	if s, ok := d.Section(name); ok {
		return s
	}
	s := &Section{Name: name}
	d.Sections = append(d.Sections, s)
	return s
}

// RemoveSection deletes the named section. It reports whether a section
// was removed.
func (d *Document) RemoveSection(name string) bool {
	for i, s := range d.Sections {
		if s.Name == name {
			d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
			return true
		}
	}
	return false
}

// SectionNames returns the section names in document order.
func (d *Document) SectionNames() []string {
	names := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		names[i] = s.Name
	}
	return names
}

// Has reports whether the section contains the key.
func (s *Section) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Get returns the entry for key, or false if the key is not present.
func (s *Section) Get(key string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Set assigns value to key. An existing key keeps its position and is
// overwritten (last write wins); a new key is appended.
func (s *Section) Set(key, value string) {
	s.setEntry(Entry{Key: key, Value: value, HasValue: true})
}

// SetBare records a key without a value (a bare line, as used by list
// sections).
func (s *Section) SetBare(key string) {
	s.setEntry(Entry{Key: key})
}

func (s *Section) setEntry(e Entry) {
	for i := range s.Entries {
		if s.Entries[i].Key == e.Key {
			s.Entries[i] = e
			return
		}
	}
	s.Entries = append(s.Entries, e)
}

// Keys returns the section's keys in entry order.
func (s *Section) Keys() []string {
	keys := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{Sections: make([]*Section, len(d.Sections))}
	for i, s := range d.Sections {
		cp := &Section{Name: s.Name, Line: s.Line, Entries: make([]Entry, len(s.Entries))}
		copy(cp.Entries, s.Entries)
		out.Sections[i] = cp
	}
	return out
}

// String renders the document in its serialized text form.
func (d *Document) String() string {
	var b strings.Builder
	if _, err := d.WriteTo(&b); err != nil {
		// strings.Builder never fails; keep the signature honest anyway.
		return fmt.Sprintf("<error: %v>", err)
	}
	return b.String()
}
