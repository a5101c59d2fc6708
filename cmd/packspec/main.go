// SPDX-License-Identifier: MIT

// Command packspec manages the sectioned key-value project documents that
// drive the packaging workflow: scaffolding, validation, inspection,
// change watching, run history and artifact serving.
package main

import (
	"flag"
	"fmt"
	"os"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/project"
	"github.com/packspec/packspec/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return 0
	}

	pslog.Configure(pslog.Config{
		Level:   os.Getenv("PACKSPEC_LOG_LEVEL"),
		Format:  os.Getenv("PACKSPEC_LOG_FORMAT"),
		Service: "packspec",
		Version: version.Version,
	})

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "check":
		return runCheck(args[1:])
	case "dump":
		return runDump(args[1:])
	case "get":
		return runGet(args[1:])
	case "version-of":
		return runVersionOf(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "serve":
		return runServe(args[1:])
	case "state":
		return runState(args[1:])
	case "version":
		fmt.Printf("packspec %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  packspec init [-f packspec.spec] [-force]")
	fmt.Fprintln(os.Stderr, "  packspec check [-f packspec.spec] [-p profile] [-q] [-strict]")
	fmt.Fprintln(os.Stderr, "  packspec dump [-f packspec.spec] [-p profile] [-format text|json|yaml] [-resolve] [-o FILE]")
	fmt.Fprintln(os.Stderr, "  packspec get [-f packspec.spec] [-p profile] [-list] [-d DELIM] SECTION.KEY")
	fmt.Fprintln(os.Stderr, "  packspec version-of [-f packspec.spec] [-p profile]")
	fmt.Fprintln(os.Stderr, "  packspec watch [-f packspec.spec] [-p profile]")
	fmt.Fprintln(os.Stderr, "  packspec serve [-f packspec.spec] [-p profile] [-addr :8787]")
	fmt.Fprintln(os.Stderr, "  packspec state <begin|finish|last|list|prune|export> [flags]")
	fmt.Fprintln(os.Stderr, "  packspec version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment: PACKSPEC_LOG_LEVEL, PACKSPEC_LOG_FORMAT (json|console),")
	fmt.Fprintln(os.Stderr, "and SECTION_KEY overrides for document values (e.g. APP_ANDROID_API).")
}

// documentFlags registers the document selection flags shared by the
// commands that read a project.
func documentFlags(fs *flag.FlagSet) (file, profile *string) {
	file = fs.String("f", project.DefaultFile, "path to the project document")
	profile = fs.String("p", "", "profile overlay to apply")
	return file, profile
}

// loadProject loads the document and reports failures in CLI style.
// Returns a nil project and a non-zero exit code on failure.
func loadProject(file, profile string) (*project.Project, int) {
	p, err := project.Load(file, project.Options{Profile: profile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in %s:\n  %v\n", file, err)
		return nil, 1
	}
	return p, 0
}
