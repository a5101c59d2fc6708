// SPDX-License-Identifier: MIT

package spec

import "strings"

// profileSep splits a section name from its profile list, as in
// `[app@demo]` or `[app:source.exclude_patterns@demo,ci]`.
const profileSep = "@"

// IsOverlay reports whether name declares a profile overlay section and,
// if so, returns the base section name and the profiles it applies to.
func IsOverlay(name string) (base string, profiles []string, ok bool) {
	i := strings.LastIndex(name, profileSep)
	if i <= 0 {
		return name, nil, false
	}
	base = strings.TrimSpace(name[:i])
	for _, p := range strings.Split(name[i+1:], ",") {
		if p = strings.TrimSpace(p); p != "" {
			profiles = append(profiles, p)
		}
	}
	return base, profiles, true
}

// WithProfile returns a copy of the document with profile overlays
// applied: every `[base@…profile…]` section whose profile list contains
// profile is merged into `[base]`, overwriting same-named keys; all
// overlay sections are then removed. With an empty profile the overlays
// are only removed. The receiver is not modified.
func (d *Document) WithProfile(profile string) *Document {
	out := New()
	for _, s := range d.Sections {
		if _, _, ok := IsOverlay(s.Name); ok {
			continue
		}
		target := out.EnsureSection(s.Name)
		target.Line = s.Line
		target.Entries = append(target.Entries, s.Entries...)
	}
	if profile == "" {
		return out
	}
	for _, s := range d.Sections {
		base, profiles, ok := IsOverlay(s.Name)
		if !ok || !containsProfile(profiles, profile) {
			continue
		}
		target := out.EnsureSection(base)
		if target.Line == 0 {
			target.Line = s.Line
		}
		for _, e := range s.Entries {
			target.setEntry(e)
		}
	}
	return out
}

// Profiles returns the distinct profile names declared by overlay
// sections, in document order.
func (d *Document) Profiles() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, s := range d.Sections {
		_, profiles, ok := IsOverlay(s.Name)
		if !ok {
			continue
		}
		for _, p := range profiles {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				names = append(names, p)
			}
		}
	}
	return names
}

func containsProfile(profiles []string, want string) bool {
	for _, p := range profiles {
		if p == want {
			return true
		}
	}
	return false
}
