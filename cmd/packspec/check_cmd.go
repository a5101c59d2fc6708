// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/packspec/packspec/internal/validate"
)

func runCheck(args []string) int {
	fs := flag.NewFlagSet("packspec check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	quiet := fs.Bool("q", false, "suppress warnings and the success line")
	strict := fs.Bool("strict", false, "treat warnings as errors")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}

	if !*quiet {
		for _, w := range p.Report.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}

	if err := p.Report.Err(); err != nil {
		var verr validate.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors() {
				fmt.Fprintf(os.Stderr, "error: %s: %s\n", e.Field, e.Message)
			}
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 1
	}

	if *strict && len(p.Report.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d warning(s) found with -strict\n", len(p.Report.Warnings))
		return 1
	}

	if !*quiet {
		fmt.Printf("✓ %s is valid\n", *file)
	}
	return 0
}
