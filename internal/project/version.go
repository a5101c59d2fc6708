// SPDX-License-Identifier: MIT

package project

import (
	"fmt"
	"os"
	"regexp"

	"github.com/packspec/packspec/internal/schema"
)

// Version returns the application version. A literal app.version wins;
// otherwise app.version.regex is applied to the contents of
// app.version.filename and the first capture group is returned.
// Relative filenames are taken relative to the document's directory.
func (p *Project) Version() (string, error) {
	v, err := p.Doc.GetDefault(schema.SectionApp, "version", "")
	if err != nil {
		return "", err
	}
	if v != "" {
		return v, nil
	}

	pattern, err := p.Doc.GetDefault(schema.SectionApp, "version.regex", "")
	if err != nil {
		return "", err
	}
	filename, err := p.Doc.GetDefault(schema.SectionApp, "version.filename", "")
	if err != nil {
		return "", err
	}
	if pattern == "" || filename == "" {
		return "", fmt.Errorf("no versioning method set, set version or version.regex and version.filename")
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid version.regex: %w", err)
	}
	if re.NumSubexp() < 1 {
		return "", fmt.Errorf("version.regex %q has no capture group", pattern)
	}

	filename = p.ResolvePath(filename)
	// #nosec G304 -- the filename comes from the user's own document
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("read version.filename: %w", err)
	}

	m := re.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("version pattern %q not found in %s", pattern, filename)
	}
	return string(m[1]), nil
}
