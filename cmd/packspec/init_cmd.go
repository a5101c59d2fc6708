// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	"github.com/packspec/packspec/internal/project"
	"github.com/packspec/packspec/internal/schema"
)

func runInit(args []string) int {
	fs := flag.NewFlagSet("packspec init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("f", project.DefaultFile, "path of the document to create")
	force := fs.Bool("force", false, "overwrite an existing document")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !*force {
		if _, err := os.Stat(*file); err == nil {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use -force to overwrite)\n", *file)
			return 1
		}
	}

	text, err := schema.Template()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := renameio.WriteFile(*file, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write %s: %v\n", *file, err)
		return 1
	}

	fmt.Printf("Created %s\n", *file)
	return 0
}
