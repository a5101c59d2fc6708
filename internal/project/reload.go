// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/schema"
)

// Holder holds a loaded project with atomic reloading. Readers always
// see a complete, validated project; a failed reload keeps the previous
// one in place.
type Holder struct {
	mu      sync.RWMutex
	current *Project

	path    string
	opts    Options
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- *Project
}

// NewHolder creates a holder around an already loaded project.
func NewHolder(initial *Project, opts Options) *Holder {
	return &Holder{
		current:         initial,
		path:            initial.Path,
		opts:            opts,
		logger:          pslog.WithComponent("project"),
		reloadListeners: make([]chan<- *Project, 0),
	}
}

// Get returns the current project (thread-safe read).
func (h *Holder) Get() *Project {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads the document again and swaps it in. Parse and validation
// failures leave the current project untouched, so readers never see a
// half-applied document.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(pslog.FieldEvent, "project.reload_start").Msg("reloading document")

	next, err := Load(h.path, h.opts)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(pslog.FieldEvent, "project.reload_failed").
			Msg("failed to load document")
		return fmt.Errorf("load document: %w", err)
	}
	if verr := next.Report.Err(); verr != nil {
		h.logger.Error().
			Err(verr).
			Str(pslog.FieldEvent, "project.validation_failed").
			Msg("new document failed validation")
		return fmt.Errorf("validate document: %w", verr)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	h.notifyListeners(next)
	h.logChanges(old, next)

	h.logger.Info().
		Str(pslog.FieldEvent, "project.reload_success").
		Msg("document reloaded")
	return nil
}

// StartWatcher watches the document for changes and reloads after a
// short debounce. Canceling the context stops the watcher.
func (h *Holder) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch document: %w", err)
	}

	h.logger.Info().
		Str(pslog.FieldEvent, "project.watcher_started").
		Str(pslog.FieldPath, h.path).
		Msg("watching document for changes")

	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(pslog.FieldEvent, "project.watcher_stopped").Msg("document watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover editors that rewrite the file in
			// place as well as those that replace it.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str(pslog.FieldEvent, "project.file_changed").
					Str("op", event.Op.String()).
					Msg("document changed")

				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().
							Err(err).
							Str(pslog.FieldEvent, "project.auto_reload_failed").
							Msg("automatic reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(pslog.FieldEvent, "project.watcher_error").
				Msg("document watcher error")
		}
	}
}

// Stop closes the watcher if one is running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel receiving each successfully
// reloaded project. Sends are non-blocking; the caller owns the channel.
func (h *Holder) RegisterListener(ch chan<- *Project) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(next *Project) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- next:
		default:
			h.logger.Warn().
				Str(pslog.FieldEvent, "project.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, next *Project) {
	if old.Title() != next.Title() {
		h.logger.Info().
			Str("old", old.Title()).
			Str("new", next.Title()).
			Msg("document changed: app.title")
	}
	oldVer, _ := old.Doc.GetDefault(schema.SectionApp, "version", "")
	newVer, _ := next.Doc.GetDefault(schema.SectionApp, "version", "")
	if oldVer != newVer {
		h.logger.Info().
			Str("old", oldVer).
			Str("new", newVer).
			Msg("document changed: app.version")
	}
}
