// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
)

func runVersionOf(args []string) int {
	fs := flag.NewFlagSet("packspec version-of", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}

	v, err := p.Version()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(v)
	return 0
}
