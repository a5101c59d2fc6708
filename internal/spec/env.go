// SPDX-License-Identifier: MIT

package spec

import "strings"

// EnvKey returns the environment variable that overrides key in section:
// both parts uppercased, dots replaced by underscores, joined with an
// underscore. `[app] android.api` maps to APP_ANDROID_API.
func EnvKey(section, key string) string {
	mangle := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(s, ".", "_"))
	}
	return mangle(section) + "_" + mangle(key)
}

// WithEnviron returns a copy of the document in which every entry whose
// EnvKey is present in lookup has its value replaced by the environment
// value. lookup follows the os.LookupEnv contract. Entries are only
// replaced, never added; callers that know the full key surface insert
// missing overrides themselves. Overridden values are exempt from
// placeholder expansion: they are taken literally.
func (d *Document) WithEnviron(lookup func(string) (string, bool)) *Document {
	if lookup == nil {
		return d.Clone()
	}
	out := d.Clone()
	for _, s := range out.Sections {
		for i := range s.Entries {
			if v, ok := lookup(EnvKey(s.Name, s.Entries[i].Key)); ok {
				s.Entries[i].Value = EscapeValue(v)
				s.Entries[i].HasValue = true
			}
		}
	}
	return out
}

// EscapeValue doubles every percent sign so the result survives
// placeholder expansion unchanged. Environment overrides pass through it
// before they are stored.
func EscapeValue(v string) string {
	return strings.ReplaceAll(v, "%", "%%")
}
