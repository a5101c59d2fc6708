// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/project"
	"github.com/packspec/packspec/internal/state"
)

func runState(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStateUsage()
		return 0
	}

	switch args[0] {
	case "begin":
		return runStateBegin(args[1:])
	case "finish":
		return runStateFinish(args[1:])
	case "last":
		return runStateLast(args[1:])
	case "list":
		return runStateList(args[1:])
	case "prune":
		return runStatePrune(args[1:])
	case "export":
		return runStateExport(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown state subcommand: %s\n\n", args[0])
		printStateUsage()
		return 2
	}
}

func printStateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  packspec state begin [-f packspec.spec] [-p profile] [-target NAME]")
	fmt.Fprintln(os.Stderr, "  packspec state finish [-f packspec.spec] [-outcome succeeded|failed] [-artifact PATH] [-error MSG] RUN_ID")
	fmt.Fprintln(os.Stderr, "  packspec state last [-f packspec.spec]")
	fmt.Fprintln(os.Stderr, "  packspec state list [-f packspec.spec] [-n LIMIT]")
	fmt.Fprintln(os.Stderr, "  packspec state prune [-f packspec.spec] [-keep N]")
	fmt.Fprintln(os.Stderr, "  packspec state export [-f packspec.spec] [-o FILE]")
}

// openRunStore loads the project and opens its run store under the build
// directory.
func openRunStore(file, profile string) (*state.Store, *project.Project, int) {
	p, code := loadProject(file, profile)
	if code != 0 {
		return nil, nil, code
	}

	dir := filepath.Join(p.ResolvePath(p.BuildDir()), "state")
	st, err := state.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open run store: %v\n", err)
		return nil, nil, 1
	}
	return st, p, 0
}

func closeRunStore(st *state.Store) {
	if err := st.Close(); err != nil {
		logger := pslog.WithComponent("state")
		logger.Warn().Err(err).Msg("failed to close run store")
	}
}

func runStateBegin(args []string) int {
	fs := flag.NewFlagSet("packspec state begin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	target := fs.String("target", "android", "packaging target recorded for the run")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, p, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	// #nosec G304 -- the path comes from the user's own -f flag
	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	appVersion, err := p.Version()
	if err != nil {
		appVersion = ""
	}

	run, err := st.Begin(context.Background(), *target, *profile, appVersion, state.Digest(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(run.ID)
	return 0
}

func runStateFinish(args []string) int {
	fs := flag.NewFlagSet("packspec state finish", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	outcome := fs.String("outcome", "succeeded", "run outcome: succeeded or failed")
	artifact := fs.String("artifact", "", "path of the produced artifact")
	errMsg := fs.String("error", "", "failure description for failed runs")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one RUN_ID argument")
		return 2
	}

	var oc state.Outcome
	switch *outcome {
	case "succeeded":
		oc = state.OutcomeSucceeded
	case "failed":
		oc = state.OutcomeFailed
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid outcome %q (use succeeded or failed)\n", *outcome)
		return 2
	}

	st, _, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	run, err := st.Finish(context.Background(), fs.Arg(0), oc, *artifact, *errMsg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printRun(run)
	return 0
}

func runStateLast(args []string) int {
	fs := flag.NewFlagSet("packspec state last", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, _, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	run, err := st.LastRun(context.Background())
	if err != nil {
		if errors.Is(err, state.ErrNoRuns) {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	printRun(run)
	return 0
}

func runStateList(args []string) int {
	fs := flag.NewFlagSet("packspec state list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	limit := fs.Int("n", 20, "maximum number of runs to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, _, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	runs, err := st.List(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return 0
	}

	for _, r := range runs {
		printRun(r)
	}
	return 0
}

func runStatePrune(args []string) int {
	fs := flag.NewFlagSet("packspec state prune", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	keep := fs.Int("keep", 10, "number of most recent runs to keep")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *keep < 0 {
		fmt.Fprintln(os.Stderr, "Error: -keep must be zero or positive")
		return 2
	}

	st, _, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	removed, err := st.Prune(context.Background(), *keep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Pruned %d run(s).\n", removed)
	return 0
}

func runStateExport(args []string) int {
	fs := flag.NewFlagSet("packspec state export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	output := fs.String("o", "", "write to file instead of stdout (atomic)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, _, code := openRunStore(*file, *profile)
	if code != 0 {
		return code
	}
	defer closeRunStore(st)

	runs, err := st.List(context.Background(), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
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

func printRun(r *state.Run) {
	fmt.Printf("%s  %-9s  %s", r.ID, r.Outcome, r.StartedAt.Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Printf("  %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Printf("  %s", r.Target)
	if r.AppVersion != "" {
		fmt.Printf("  %s", r.AppVersion)
	}
	if r.Artifact != "" {
		fmt.Printf("  %s", r.Artifact)
	}
	if r.Error != "" {
		fmt.Printf("  error=%s", r.Error)
	}
	fmt.Println()
}
