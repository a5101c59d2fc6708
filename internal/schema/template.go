// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"strings"
)

const templateHeader = `# packspec.spec
#
# Packaging configuration for your application. Edit the values below
# and run 'packspec check' to validate the result.

`

const templateFooter = `#
# Profiles
# --------
#
# Any section can be overridden for a named profile by appending @profile
# to the header. List sections take one item per line and extend the
# comma-separated value of the matching key.
#
#     [app@demo]
#     title = My Application (demo)
#
#     [app:source.exclude_patterns@demo]
#     images/hd/*
#
# Select a profile with the -p flag, e.g. packspec check -p demo.
`

// templateActive lists the fields that ship uncommented in a fresh
// document, with their starting value. Required fields get a placeholder
// the user is expected to edit.
var templateActive = map[string]string{
	"app.title":               "My Application",
	"app.package.name":        "myapp",
	"app.package.domain":      "org.example",
	"app.source.dir":          ".",
	"app.source.include_exts": "py,png,jpg,kv,atlas",
	"app.version":             "0.1",
	"app.requirements":        "python3,kivy",
	"app.orientation":         "portrait",
	"app.fullscreen":          "0",
	"packspec.log_level":      "2",
	"packspec.warn_on_root":   "1",
	"packspec.build_dir":      "./.packspec",
	"packspec.bin_dir":        "./bin",
}

// templateExamples provides commented example values for fields without
// a registry default.
var templateExamples = map[string]string{
	"app.source.exclude_exts":         "spec",
	"app.source.exclude_dirs":         "tests, bin",
	"app.source.exclude_patterns":     "license,images/*/*.jpg",
	"app.version.regex":               `__version__ = ['"](.*)['"]`,
	"app.version.filename":            "%(source.dir)s/main.py",
	"app.presplash.filename":          "%(source.dir)s/data/presplash.png",
	"app.icon.filename":               "%(source.dir)s/data/icon.png",
	"app.android.permissions":         "android.permission.INTERNET",
	"app.android.gradle_dependencies": "org.jetbrains.kotlin:kotlin-stdlib:1.9.24",
	"app.android.add_jars":            "libs/foo.jar,libs/bar.jar",
	"app.p4a.local_recipes":           "./recipes",
}

// Template renders the starter document written by `packspec init`. The
// output parses cleanly and validates without findings. Deprecated fields
// are not advertised.
func Template() (string, error) {
	reg, err := GetRegistry()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(templateHeader)
	for _, section := range []string{SectionApp, SectionTool} {
		fmt.Fprintf(&b, "[%s]\n", section)
		for _, f := range reg.SectionFields(section) {
			if f.Status == StatusDeprecated {
				continue
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "# (%s) %s\n", kindMarker(f.Kind), f.Help)
			if f.Kind == KindEnum {
				fmt.Fprintf(&b, "# Valid options: %s\n", strings.Join(f.Enum, ", "))
			}

			if v, ok := templateActive[f.Path()]; ok {
				fmt.Fprintf(&b, "%s = %s\n", f.Key, v)
				continue
			}
			example := f.Default
			if v, ok := templateExamples[f.Path()]; ok {
				example = v
			}
			if example == "" {
				fmt.Fprintf(&b, "#%s =\n", f.Key)
			} else {
				fmt.Fprintf(&b, "#%s = %s\n", f.Key, example)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(templateFooter)
	return b.String(), nil
}

func kindMarker(k Kind) string {
	if k == KindEnum {
		return string(KindString)
	}
	return string(k)
}
