// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/project"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("packspec watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}

	logger := pslog.WithComponent("watch")
	holder := project.NewHolder(p, project.Options{Profile: *profile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updates := make(chan *project.Project, 1)
	holder.RegisterListener(updates)

	if err := holder.StartWatcher(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: start watcher: %v\n", err)
		return 1
	}
	defer holder.Stop()

	logger.Info().
		Str(pslog.FieldEvent, "watch.started").
		Str(pslog.FieldPath, *file).
		Msg("watching for document changes")
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", *file)
	printSnapshot(p)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return 0
		case next := <-updates:
			printSnapshot(next)
		}
	}
}

func printSnapshot(p *project.Project) {
	v, err := p.Version()
	if err != nil {
		v = "(no version)"
	}
	fmt.Printf("  %s %s\n", p.Title(), v)
	for _, w := range p.Report.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
	}
}
