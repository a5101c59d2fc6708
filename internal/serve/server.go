// SPDX-License-Identifier: MIT

// Package serve exposes a project's bin directory over HTTP so built
// artifacts can be installed onto devices on the same network.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	pslog "github.com/packspec/packspec/internal/log"
	"github.com/packspec/packspec/internal/project"
	"github.com/packspec/packspec/internal/version"
)

// Options configures the artifact server.
type Options struct {
	Addr string

	// BinDir overrides the project's artifact directory when non-empty.
	BinDir string

	// Request middleware limit (sliding window, per IP).
	RequestLimit int
	Window       time.Duration

	// Token-bucket budget for downloads.
	Downloads LimiterConfig

	CSP string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultOptions returns the server defaults for LAN artifact sharing.
func DefaultOptions() Options {
	return Options{
		Addr:         ":8787",
		RequestLimit: 300,
		Window:       time.Minute,
		Downloads:    DefaultLimiterConfig(),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // large installer downloads
		IdleTimeout:  2 * time.Minute,

		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the artifact index and downloads for one project.
type Server struct {
	opts      Options
	holder    *project.Holder
	downloads *Limiter
	logger    zerolog.Logger
	started   time.Time
}

// New creates a Server over the given project holder. The holder is read on
// every request so a reload that changes the bin directory takes effect
// without a restart.
func New(holder *project.Holder, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultOptions().Addr
	}
	if opts.RequestLimit <= 0 {
		opts.RequestLimit = DefaultOptions().RequestLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultOptions().Window
	}
	if opts.Downloads == (LimiterConfig{}) {
		opts.Downloads = DefaultLimiterConfig()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultOptions().ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultOptions().WriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultOptions().IdleTimeout
	}
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = DefaultOptions().MaxHeaderBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultOptions().ShutdownTimeout
	}

	return &Server{
		opts:      opts,
		holder:    holder,
		downloads: NewLimiter(opts.Downloads),
		logger:    pslog.WithComponent("serve"),
		started:   time.Now(),
	}
}

func (s *Server) artifactsRoot() string {
	if s.opts.BinDir != "" {
		return s.opts.BinDir
	}
	p := s.holder.Get()
	return p.ResolvePath(p.BinDir())
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders(s.opts.CSP))
	r.Use(Metrics)
	r.Use(RequestLogging)
	r.Use(RateLimit(RateLimitConfig{
		RequestLimit: s.opts.RequestLimit,
		WindowSize:   s.opts.Window,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/", s.handleIndex)
	r.With(s.downloadLimit).Handle("/artifacts/*", http.StripPrefix("/artifacts", s.artifactServer()))

	return r
}

// downloadLimit applies the token-bucket download budget on top of the
// general request middleware.
func (s *Server) downloadLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		if !s.downloads.Allow(ip) {
			logger := pslog.WithComponentFromContext(r.Context(), "serve")
			logger.Warn().
				Str("event", "artifact.rate_limited").
				Str("client_ip", ip).
				Str("path", r.URL.Path).
				Msg("download rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Download budget exhausted. Please try again later."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	logger := pslog.WithComponentFromContext(r.Context(), "serve")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

type artifactInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

type artifactIndex struct {
	App       string         `json:"app"`
	Version   string         `json:"version,omitempty"`
	Artifacts []artifactInfo `json:"artifacts"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := pslog.WithComponentFromContext(r.Context(), "serve")

	p := s.holder.Get()
	idx := artifactIndex{
		App:       p.Title(),
		Artifacts: []artifactInfo{},
	}
	if v, err := p.Version(); err == nil {
		idx.Version = v
	}

	root := s.artifactsRoot()
	entries, err := listArtifacts(root)
	if err != nil {
		logger.Error().Err(err).Str("event", "index.scan_failed").Str("artifact_dir", root).Msg("failed to scan artifact directory")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	idx.Artifacts = entries

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(idx); err != nil {
		logger.Error().Err(err).Str("event", "index.encode_error").Msg("failed to encode artifact index")
	}
}

// listArtifacts walks the bin directory and returns download entries for
// every regular file. A missing directory yields an empty index, not an
// error, so serving works before the first build.
func listArtifacts(root string) ([]artifactInfo, error) {
	out := []artifactInfo{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, artifactInfo{
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			URL:      "/artifacts/" + filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []artifactInfo{}, nil
		}
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// Run starts the listener and blocks until ctx is cancelled or the server
// fails. Shutdown is graceful with a bounded timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout / 2,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		MaxHeaderBytes:    s.opts.MaxHeaderBytes,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().
			Str("event", "serve.listening").
			Str("addr", srv.Addr).
			Str("artifact_dir", s.artifactsRoot()).
			Msg("artifact server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("artifact server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		s.logger.Info().Str("event", "serve.shutdown").Msg("shutting down artifact server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
