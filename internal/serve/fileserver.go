// SPDX-License-Identifier: MIT

package serve

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	pslog "github.com/packspec/packspec/internal/log"
)

// artifactServer creates a handler that serves packaged artifacts from the
// project's output directory with comprehensive security checks against path
// traversal, symlink escapes, and directory listing.
func (s *Server) artifactServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := pslog.WithComponentFromContext(r.Context(), "serve")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			logger.Warn().Str("event", "artifact.denied").Str("path", r.URL.Path).Str("reason", "method_not_allowed").Msg("method not allowed")
			recordArtifactDenied("method_not_allowed")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := r.URL.Path
		// Enhanced traversal detection including multiple URL-decode passes,
		// Unicode normalization, mixed-case encodings, and NUL bytes.
		if isPathTraversal(path) {
			logger.Warn().Str("event", "artifact.denied").Str("path", r.URL.Path).Str("reason", "path_escape").Msg("detected traversal sequence")
			recordArtifactDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if strings.HasSuffix(path, "/") || path == "" || path == "/" {
			logger.Warn().Str("event", "artifact.denied").Str("path", r.URL.Path).Str("reason", "directory_listing").Msg("directory listing forbidden")
			recordArtifactDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		absRoot, err := filepath.Abs(s.artifactsRoot())
		if err != nil {
			logger.Error().Err(err).Str("event", "artifact.internal_error").Msg("could not get absolute artifact dir")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		fullPath := filepath.Join(absRoot, path)

		// Evaluate symlinks and clean the path
		realPath, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Info().Str("event", "artifact.not_found").Str("path", fullPath).Msg("artifact not found")
				recordArtifactDenied("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Str("event", "artifact.internal_error").Str("path", fullPath).Msg("could not evaluate symlinks")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Also evaluate symlinks on the artifact directory itself to get a
		// consistent base path.
		realRoot, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			logger.Error().Err(err).Str("event", "artifact.internal_error").Msg("could not evaluate symlinks on artifact dir")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Security check: ensure the real path is within the real artifact
		// directory. filepath.Rel gives a robust containment check that also
		// protects against symlink escapes.
		relPath, err := filepath.Rel(realRoot, realPath)
		if err != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
			logger.Warn().
				Str("event", "artifact.denied").
				Str("path", path).
				Str("resolved_path", realPath).
				Str("artifact_dir", realRoot).
				Str("reason", "path_escape").
				Msg("path escapes artifact directory")
			recordArtifactDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// Security check: ensure we are not serving a directory
		info, err := os.Stat(realPath)
		if err != nil {
			logger.Error().Err(err).Str("event", "artifact.internal_error").Str("path", realPath).Msg("could not stat real path")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			logger.Warn().Str("event", "artifact.denied").Str("path", path).Str("reason", "directory_listing").Msg("resolved path is a directory")
			recordArtifactDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// #nosec G304 -- realPath is validated to reside inside the artifact directory
		f, err := os.Open(realPath)
		if err != nil {
			logger.Error().Err(err).Str("event", "artifact.internal_error").Str("path", realPath).Msg("could not open real path for serving")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn().Err(err).Str("path", realPath).Msg("failed to close file")
			}
		}()

		// Re-fetch stat info from the opened file handle
		info, err = f.Stat()
		if err != nil {
			logger.Error().Err(err).Str("event", "artifact.internal_error").Str("path", realPath).Msg("could not stat opened file")
			recordArtifactDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Weak ETag based on file modtime and size. The W/ prefix marks a weak
		// validator, suitable for content that is semantically equivalent but
		// not necessarily byte-for-byte identical.
		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")

		// Check if the client already has the same version of the file.
		if match := r.Header.Get("If-None-Match"); match != "" {
			if match == etag {
				recordArtifactCacheHit()
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		// Installer packages get explicit types and a download disposition;
		// content sniffing would misclassify them as generic zip data.
		lowerName := strings.ToLower(info.Name())
		switch {
		case strings.HasSuffix(lowerName, ".apk"):
			w.Header().Set("Content-Type", "application/vnd.android.package-archive")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
		case strings.HasSuffix(lowerName, ".aab"), strings.HasSuffix(lowerName, ".ipa"):
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
		case strings.HasSuffix(lowerName, ".json"):
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		logger.Info().Str("event", "artifact.allowed").Str("path", path).Int64("size", info.Size()).Msg("serving artifact")
		recordArtifactServed(info.Size())

		// http.ServeContent is preferred over http.ServeFile when we already
		// have an open file, as it handles Range requests and sets
		// Content-Length and Last-Modified correctly.
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal performs robust checks against path traversal attempts.
// The path is inspected before and after every decode pass so dangerous
// sequences are caught at whatever encoding depth they appear; Unicode
// normalization then catches decomposed variants of dot-dot.
func isPathTraversal(p string) bool {
	decoded := p
	// Up to three decode passes to catch double/triple encodings.
	for i := 0; i < 3; i++ {
		if hasTraversalToken(decoded) {
			return true
		}
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d, err := url.QueryUnescape(decoded); err == nil {
			// Fallback for stray '+' or query-style encoding.
			decoded = d
		}
		if decoded == prev {
			break
		}
	}
	if hasTraversalToken(decoded) {
		return true
	}

	// Normalize and check again for dot-dot.
	normalized := norm.NFC.String(decoded)
	return strings.Contains(normalized, "..")
}

// hasTraversalToken reports dangerous byte patterns at one decoding stage.
func hasTraversalToken(s string) bool {
	lower := strings.ToLower(s)
	patterns := []string{
		"..",        // parent traversal, forward or backslash
		"%00",       // encoded NUL
		"%c0%ae",    // overlong UTF-8 for '.'
		"%e0%80%ae", // another overlong variant
	}
	for _, pat := range patterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return strings.IndexByte(s, 0x00) >= 0
}
