// SPDX-License-Identifier: MIT

package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/packspec/packspec/internal/project"
)

func noEnviron(string) (string, bool) { return "", false }

// newTestServer builds a Server over a minimal project whose bin directory
// lives inside a temp dir. The bin directory path is returned so tests can
// drop artifacts into it.
func newTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0o750); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}

	docText := "[app]\n" +
		"title = Demo App\n" +
		"package.name = demoapp\n" +
		"package.domain = org.demo\n" +
		"version = 1.2.3\n" +
		"\n" +
		"[packspec]\n" +
		"log_level = error\n" +
		"bin_dir = ./bin\n"
	docPath := filepath.Join(dir, "packspec.spec")
	if err := os.WriteFile(docPath, []byte(docText), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}

	p, err := project.Load(docPath, project.Options{Environ: noEnviron})
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	holder := project.NewHolder(p, project.Options{Environ: noEnviron})

	return New(holder, opts), binDir
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, DefaultOptions())
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if v, ok := body["version"].(string); !ok || v == "" {
		t.Errorf("version field = %v, want non-empty string", body["version"])
	}
}

func TestIndexListsArtifacts(t *testing.T) {
	s, binDir := newTestServer(t, DefaultOptions())
	writeArtifact(t, binDir, "demo.apk", "apk payload")
	writeArtifact(t, binDir, filepath.Join("sub", "x.aab"), "aab")
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var idx artifactIndex
	if err := json.Unmarshal(w.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if idx.App != "Demo App" {
		t.Errorf("app = %q, want Demo App", idx.App)
	}
	if idx.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", idx.Version)
	}
	if len(idx.Artifacts) != 2 {
		t.Fatalf("artifacts = %d entries, want 2: %+v", len(idx.Artifacts), idx.Artifacts)
	}
	if idx.Artifacts[0].URL != "/artifacts/demo.apk" {
		t.Errorf("first URL = %q, want /artifacts/demo.apk", idx.Artifacts[0].URL)
	}
	if idx.Artifacts[1].URL != "/artifacts/sub/x.aab" {
		t.Errorf("second URL = %q, want /artifacts/sub/x.aab", idx.Artifacts[1].URL)
	}
	if idx.Artifacts[0].Size != int64(len("apk payload")) {
		t.Errorf("size = %d, want %d", idx.Artifacts[0].Size, len("apk payload"))
	}
	if idx.Artifacts[0].Modified.IsZero() {
		t.Error("modified time is zero")
	}
}

func TestIndexEmptyWithoutBinDir(t *testing.T) {
	s, binDir := newTestServer(t, DefaultOptions())
	if err := os.RemoveAll(binDir); err != nil {
		t.Fatalf("remove bin dir: %v", err)
	}
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 before the first build", w.Code)
	}

	var idx artifactIndex
	if err := json.Unmarshal(w.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(idx.Artifacts) != 0 {
		t.Errorf("artifacts = %+v, want empty list", idx.Artifacts)
	}
}

func TestDownloadThroughRouter(t *testing.T) {
	s, binDir := newTestServer(t, DefaultOptions())
	writeArtifact(t, binDir, "demo.apk", "apk payload")
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/artifacts/demo.apk", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "apk payload" {
		t.Errorf("body = %q", got)
	}

	// Middleware stack applies to downloads as well
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get(HeaderRequestID); got == "" {
		t.Error("response carries no request ID")
	}
}

func TestDownloadBudgetExhausted(t *testing.T) {
	opts := DefaultOptions()
	opts.Downloads = LimiterConfig{
		GlobalRate:      1000,
		GlobalBurst:     1000,
		PerIPRate:       1,
		PerIPBurst:      1,
		CleanupInterval: time.Minute,
	}
	s, binDir := newTestServer(t, opts)
	writeArtifact(t, binDir, "demo.apk", "apk payload")
	handler := s.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/artifacts/demo.apk", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first download: status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/artifacts/demo.apk", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second download: status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 response carries no Retry-After")
	}
	if !strings.Contains(second.Body.String(), "rate_limit_exceeded") {
		t.Errorf("429 body = %q", second.Body.String())
	}

	// The index stays reachable; only downloads consume the budget.
	index := httptest.NewRecorder()
	handler.ServeHTTP(index, httptest.NewRequest(http.MethodGet, "/", nil))
	if index.Code != http.StatusOK {
		t.Errorf("index after exhausted budget: status = %d, want 200", index.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, binDir := newTestServer(t, DefaultOptions())
	writeArtifact(t, binDir, "demo.apk", "apk payload")
	handler := s.Handler()

	// Generate some traffic first
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/artifacts/demo.apk", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, metric := range []string{
		"packspec_http_requests_total",
		"packspec_artifact_downloads_total",
		"packspec_artifact_bytes_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	opts := DefaultOptions()
	opts.Addr = "127.0.0.1:0"
	s, _ := newTestServer(t, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on graceful shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}
