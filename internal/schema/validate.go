// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/packspec/packspec/internal/spec"
	"github.com/packspec/packspec/internal/validate"
)

// Warning is a non-fatal finding about a document.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// Report holds the outcome of validating a document. Errors make the
// document unusable, warnings do not.
type Report struct {
	Warnings []Warning

	err error
}

// Err returns the accumulated validation error, nil when the document
// is valid.
func (r *Report) Err() error {
	return r.err
}

// Valid reports whether the document passed validation.
func (r *Report) Valid() bool {
	return r.err == nil
}

// Validate checks doc against the field registry. Overlay sections are
// skipped: callers validate the effective document produced by
// Document.WithProfile. The returned error is non-nil only when the
// registry itself is broken.
func Validate(doc *spec.Document) (*Report, error) {
	reg, err := GetRegistry()
	if err != nil {
		return nil, err
	}

	v := validate.New()
	report := &Report{}

	for _, sec := range doc.Sections {
		if _, _, overlay := spec.IsOverlay(sec.Name); overlay {
			continue
		}
		if base, key, ok := spec.SplitListSection(sec.Name); ok {
			checkListSection(reg, report, base, key)
			continue
		}
		if !reg.KnownSection(sec.Name) {
			report.warnf(sec.Name, "unrecognized section")
			continue
		}
		for _, e := range sec.Entries {
			checkEntry(reg, v, report, doc, sec.Name, e)
		}
	}

	checkRequired(reg, v, doc)
	checkVersioning(v, doc)
	checkDomain(v, doc)
	checkAPILevels(v, doc)

	report.err = v.Err()
	return report, nil
}

func checkEntry(reg *Registry, v *validate.Validator, report *Report, doc *spec.Document, section string, e spec.Entry) {
	f, known := reg.Lookup(section, e.Key)
	path := section + "." + e.Key
	if !known {
		report.warnf(path, "unknown key")
		return
	}
	if f.Status == StatusDeprecated {
		report.warnf(path, "deprecated, use %s instead (will be removed in %s)",
			f.ReplacedBy, f.RemovalVersion)
	}

	value, err := doc.Resolve(section, e.Key)
	if err != nil {
		v.AddError(path, fmt.Sprintf("unresolvable value: %v", err), e.Value)
		return
	}
	if value == "" {
		return
	}

	switch f.Kind {
	case KindBool:
		if _, err := doc.GetBool(section, e.Key, false); err != nil {
			v.AddError(path, "must be a boolean (true/false, yes/no, 1/0)", value)
		}
	case KindInt:
		if _, err := strconv.Atoi(value); err != nil {
			v.AddError(path, "must be an integer", value)
		}
	case KindEnum:
		v.OneOf(path, value, f.Enum)
	}
}

func checkListSection(reg *Registry, report *Report, base, key string) {
	path := base + ":" + key
	f, known := reg.Lookup(base, key)
	switch {
	case !reg.KnownSection(base):
		report.warnf(path, "list section for unrecognized section")
	case !known:
		report.warnf(path, "list section for unknown key")
	case f.Kind != KindList:
		report.warnf(path, "list section for non-list key")
	}
}

func checkRequired(reg *Registry, v *validate.Validator, doc *spec.Document) {
	for _, f := range reg.Fields {
		if !f.Required {
			continue
		}
		value, err := doc.GetDefault(f.Section, f.Key, "")
		if err != nil {
			// Already reported as unresolvable by checkEntry.
			continue
		}
		v.NotEmpty(f.Path(), value)
	}
}

// checkVersioning enforces that exactly one versioning method is set:
// either a literal version, or a regex plus the file to search.
func checkVersioning(v *validate.Validator, doc *spec.Document) {
	version, err := doc.GetDefault(SectionApp, "version", "")
	if err != nil {
		return
	}
	regex, err := doc.GetDefault(SectionApp, "version.regex", "")
	if err != nil {
		return
	}
	filename, err := doc.GetDefault(SectionApp, "version.filename", "")
	if err != nil {
		return
	}

	switch {
	case version != "" && regex != "":
		v.AddError("app.version", "conflicts with version.regex, set only one", version)
	case version != "":
		// Literal version, nothing more to check.
	case regex != "" && filename == "":
		v.AddError("app.version.filename", "required when version.regex is set", "")
	case regex == "" && filename != "":
		v.AddError("app.version.regex", "required when version.filename is set", "")
	case regex == "":
		v.AddError("app.version", "no versioning method set, set version or version.regex and version.filename", "")
	}
}

func checkDomain(v *validate.Validator, doc *spec.Document) {
	domain, err := doc.GetDefault(SectionApp, "package.domain", "")
	if err != nil || domain == "" {
		return
	}
	v.Custom("app.package.domain", domain, func(val interface{}) error {
		s, _ := val.(string)
		labels := strings.Split(s, ".")
		if len(labels) < 2 {
			return fmt.Errorf("must be a reverse-DNS name with at least two labels, e.g. org.example")
		}
		for _, l := range labels {
			if l == "" {
				return fmt.Errorf("must not contain empty labels")
			}
		}
		return nil
	})
}

func checkAPILevels(v *validate.Validator, doc *spec.Document) {
	api, err := doc.GetDefault(SectionApp, "android.api", "")
	if err != nil || api == "" {
		return
	}
	minapi, err := doc.GetDefault(SectionApp, "android.minapi", "")
	if err != nil || minapi == "" {
		return
	}
	apiN, errA := strconv.Atoi(api)
	minN, errB := strconv.Atoi(minapi)
	if errA != nil || errB != nil {
		// Non-integer values are reported by the typed check.
		return
	}
	if apiN < minN {
		v.AddError("app.android.api",
			fmt.Sprintf("must be >= android.minapi (%d)", minN), api)
	}
}

// Deprecations returns the deprecated registry fields present in doc,
// in document order.
func (r *Registry) Deprecations(doc *spec.Document) []Field {
	var out []Field
	for _, sec := range doc.Sections {
		if _, _, overlay := spec.IsOverlay(sec.Name); overlay {
			continue
		}
		for _, e := range sec.Entries {
			f, ok := r.Lookup(sec.Name, e.Key)
			if ok && f.Status == StatusDeprecated {
				out = append(out, f)
			}
		}
	}
	return out
}

func (r *Report) warnf(path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}
