// SPDX-License-Identifier: MIT

package project

import (
	"os"

	"github.com/rs/zerolog"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/schema"
	"github.com/packspec/packspec/internal/spec"
)

// Options control how a project is loaded.
type Options struct {
	// Profile selects the overlay sections merged into the document.
	Profile string

	// Environ resolves environment overrides. Defaults to os.LookupEnv.
	Environ func(string) (string, bool)

	// SkipDefaults leaves registry defaults out of the effective
	// document, exposing only what the file, profile and environment
	// actually set.
	SkipDefaults bool
}

// Load reads the document at path and derives the effective
// configuration. It fails on IO and format errors; validation findings
// land in Project.Report instead.
func Load(path string, opts Options) (*Project, error) {
	logger := pslog.WithComponent("project")
	lookup := opts.Environ
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw, err := spec.ParseFile(path)
	if err != nil {
		return nil, err
	}

	doc := raw.WithProfile(opts.Profile)
	doc, err = applyEnviron(doc, lookup, logger)
	if err != nil {
		return nil, err
	}

	if !opts.SkipDefaults {
		reg, err := schema.GetRegistry()
		if err != nil {
			return nil, err
		}
		reg.ApplyDefaults(doc)
	}

	report, err := schema.Validate(doc)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Path:    path,
		Profile: opts.Profile,
		Raw:     raw,
		Doc:     doc,
		Report:  report,
	}
	logDeprecations(doc)
	logger.Debug().
		Str(pslog.FieldPath, path).
		Str(pslog.FieldProfile, opts.Profile).
		Int("sections", len(doc.Sections)).
		Msg("document loaded")
	return p, nil
}

// applyEnviron folds environment overrides into doc. Entries present in
// the document are replaced through Document.WithEnviron; registered
// fields absent from the file can be introduced by their environment
// variable as well.
func applyEnviron(doc *spec.Document, lookup func(string) (string, bool), logger zerolog.Logger) (*spec.Document, error) {
	out := doc.WithEnviron(lookup)

	reg, err := schema.GetRegistry()
	if err != nil {
		return nil, err
	}
	for _, f := range reg.Fields {
		v, ok := lookup(f.EnvKey())
		if !ok {
			continue
		}
		s := out.EnsureSection(f.Section)
		if _, exists := s.Get(f.Key); !exists {
			s.Set(f.Key, spec.EscapeValue(v))
		}
		logger.Debug().
			Str("key", f.EnvKey()).
			Str("value", v).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return out, nil
}

// logDeprecations warns about deprecated fields present in the
// document, naming the replacement.
func logDeprecations(doc *spec.Document) {
	reg, err := schema.GetRegistry()
	if err != nil {
		return
	}
	logger := pslog.WithComponent("project")
	for _, f := range reg.Deprecations(doc) {
		logger.Warn().
			Str("old_field", f.Path()).
			Str("new_field", f.ReplacedBy).
			Str("deprecated_since", f.DeprecatedSince).
			Str("removal_version", f.RemovalVersion).
			Msgf("deprecated configuration field '%s' detected, please use '%s' instead (will be removed in %s)",
				f.Key, f.ReplacedBy, f.RemovalVersion)
	}
}
