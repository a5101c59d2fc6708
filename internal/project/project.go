// SPDX-License-Identifier: MIT

// Package project loads packaging documents and derives the effective
// configuration from registry defaults, the file itself, the selected
// profile and environment overrides.
package project

import (
	"path/filepath"
	"strings"

	"github.com/packspec/packspec/internal/schema"
	"github.com/packspec/packspec/internal/spec"
)

// DefaultFile is the document consulted when no path is given.
const DefaultFile = "packspec.spec"

// Project is a loaded packaging document together with everything
// derived from it.
type Project struct {
	Path    string
	Profile string

	// Raw is the document as parsed from disk.
	Raw *spec.Document

	// Doc is the effective document: profile applied, environment
	// overrides folded in, registry defaults filled.
	Doc *spec.Document

	// Report holds the validation findings for Doc.
	Report *schema.Report
}

// Valid reports whether the effective document passed validation.
func (p *Project) Valid() bool {
	return p.Report.Valid()
}

// Title returns app.title from the effective document.
func (p *Project) Title() string {
	v, _ := p.Doc.GetDefault(schema.SectionApp, "title", "")
	return v
}

// PackageName returns app.package.name from the effective document.
func (p *Project) PackageName() string {
	v, _ := p.Doc.GetDefault(schema.SectionApp, "package.name", "")
	return v
}

// BuildDir returns the build workspace directory.
func (p *Project) BuildDir() string {
	v, err := p.Doc.GetDefault(schema.SectionTool, "build_dir", "")
	if err != nil || v == "" {
		return "./.packspec"
	}
	return v
}

// BinDir returns the artifact output directory.
func (p *Project) BinDir() string {
	v, err := p.Doc.GetDefault(schema.SectionTool, "bin_dir", "")
	if err != nil || v == "" {
		return "./bin"
	}
	return v
}

// ResolvePath interprets a path value from the document relative to the
// document's directory. Absolute values pass through.
func (p *Project) ResolvePath(value string) string {
	if value == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(filepath.Dir(p.Path), value)
}

// LogLevel maps packspec.log_level onto a level name understood by the
// logging setup. The numeric scale is 0 = error, 1 = info, 2 = debug.
func (p *Project) LogLevel() string {
	v, err := p.Doc.GetDefault(schema.SectionTool, "log_level", "")
	if err != nil {
		return "info"
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "error":
		return "error"
	case "1", "info":
		return "info"
	case "2", "debug", "":
		return "debug"
	default:
		return "info"
	}
}

// WarnOnRoot reports whether the tool should warn when running as root.
func (p *Project) WarnOnRoot() bool {
	v, err := p.Doc.GetBool(schema.SectionTool, "warn_on_root", true)
	if err != nil {
		return true
	}
	return v
}
