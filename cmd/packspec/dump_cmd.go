// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/packspec/packspec/internal/spec"
)

func runDump(args []string) int {
	fs := flag.NewFlagSet("packspec dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	format := fs.String("format", "text", "output format: text, json or yaml")
	resolve := fs.Bool("resolve", false, "expand interpolation placeholders")
	output := fs.String("o", "", "write to file instead of stdout (atomic)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}
	doc := p.Doc

	var buf bytes.Buffer
	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "text":
		if *resolve {
			resolved, err := resolveDocument(doc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			doc = resolved
		}
		if _, err := doc.WriteTo(&buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case "json":
		m, err := documentMap(doc, *resolve)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	case "yaml", "yml":
		m, err := documentMap(doc, *resolve)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use text, json or yaml)\n", *format)
		return 2
	}

	if *output != "" {
		if err := renameio.WriteFile(*output, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: write %s: %v\n", *output, err)
			return 1
		}
		return 0
	}

	_, _ = os.Stdout.Write(buf.Bytes())
	return 0
}

// documentMap flattens the document into section -> key -> value maps for
// the structured output formats. Section and key order follows the
// encoder's key sorting; the text format keeps document order.
func documentMap(doc *spec.Document, resolve bool) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(doc.Sections))
	for _, sec := range doc.Sections {
		m := make(map[string]string, len(sec.Entries))
		for _, e := range sec.Entries {
			v := e.Value
			if resolve && e.HasValue {
				rv, err := doc.Resolve(sec.Name, e.Key)
				if err != nil {
					return nil, err
				}
				v = rv
			}
			m[e.Key] = v
		}
		out[sec.Name] = m
	}
	return out, nil
}

// resolveDocument returns a copy with every value interpolated, so the
// text dump shows what consumers of the document actually see.
func resolveDocument(doc *spec.Document) (*spec.Document, error) {
	out := doc.Clone()
	for _, sec := range out.Sections {
		for i, e := range sec.Entries {
			if !e.HasValue {
				continue
			}
			rv, err := doc.Resolve(sec.Name, e.Key)
			if err != nil {
				return nil, err
			}
			sec.Entries[i].Value = spec.EscapeValue(rv)
		}
	}
	return out, nil
}
