// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func runGet(args []string) int {
	fs := flag.NewFlagSet("packspec get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	asList := fs.Bool("list", false, "print the value as list items, one per line")
	delim := fs.String("d", ",", "list delimiter used with -list")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one SECTION.KEY argument")
		return 2
	}

	// Keys themselves may be dotted (app.package.name), so only the first
	// dot separates the section.
	section, key, ok := strings.Cut(fs.Arg(0), ".")
	if !ok || section == "" || key == "" {
		fmt.Fprintf(os.Stderr, "Error: invalid target %q (want SECTION.KEY)\n", fs.Arg(0))
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}

	if *asList {
		items, err := p.Doc.GetList(section, key, *delim)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		for _, item := range items {
			fmt.Println(item)
		}
		return 0
	}

	value, err := p.Doc.Resolve(section, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(value)
	return 0
}
