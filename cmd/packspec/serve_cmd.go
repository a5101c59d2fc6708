// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/project"
	"github.com/packspec/packspec/internal/serve"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("packspec serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file, profile := documentFlags(fs)
	addr := fs.String("addr", project.ParseString("PACKSPEC_SERVE_ADDR", ":8787"), "listen address")
	binDir := fs.String("bin", "", "artifact directory (default: the project's bin_dir)")
	requestLimit := fs.Int("request-limit", project.ParseInt("PACKSPEC_SERVE_REQUEST_LIMIT", 300), "requests per minute per client IP")
	downloadRate := fs.Int("download-rate", project.ParseInt("PACKSPEC_SERVE_DOWNLOAD_RATE", 5), "downloads per second per client IP")
	downloadBurst := fs.Int("download-burst", project.ParseInt("PACKSPEC_SERVE_DOWNLOAD_BURST", 10), "download burst per client IP")
	watch := fs.Bool("watch", project.ParseBool("PACKSPEC_SERVE_WATCH", true), "reload the document when it changes on disk")
	shutdownTimeout := fs.Duration("shutdown-timeout", project.ParseDuration("PACKSPEC_SERVE_SHUTDOWN_TIMEOUT", 10*time.Second), "graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, code := loadProject(*file, *profile)
	if code != 0 {
		return code
	}

	logger := pslog.WithComponent("serve")
	holder := project.NewHolder(p, project.Options{Profile: *profile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Watcher is best-effort: serving existing artifacts should not fail
	// because inotify is unavailable.
	if *watch {
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().Err(err).Str(pslog.FieldEvent, "serve.watcher_start_failed").Msg("failed to start document watcher")
		}
		defer holder.Stop()
	}

	opts := serve.DefaultOptions()
	opts.Addr = *addr
	opts.BinDir = *binDir
	opts.RequestLimit = *requestLimit
	opts.Downloads.PerIPRate = rate.Limit(*downloadRate)
	opts.Downloads.PerIPBurst = *downloadBurst
	opts.ShutdownTimeout = *shutdownTimeout

	if err := serve.New(holder, opts).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
