package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mp4-creator/internal/handlers"
	"mp4-creator/internal/pipeline"
	"mp4-creator/internal/startup"
	"mp4-creator/internal/streaming"
	"mp4-creator/internal/transcoder"
	"mp4-creator/internal/upload"
	"mp4-creator/internal/workspace"
)

func newTestRouter(t *testing.T, tokenHash string) http.Handler {
	t.Helper()

	config := startup.Default()
	config.Server.StaticDir = t.TempDir()
	config.Server.APITokenHash = tokenHash
	if err := os.WriteFile(filepath.Join(config.Server.StaticDir, "index.html"), []byte("<h1>merge</h1>"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Never probed, so the engine reports itself unavailable.
	engine := transcoder.NewFFmpeg("/nonexistent/ffmpeg", "/nonexistent/ffprobe")
	workspaces := workspace.NewManager(workspace.Config{Root: t.TempDir(), CleanupGrace: time.Minute})
	coord := pipeline.NewCoordinator(pipeline.Options{
		Gate:       engine,
		Workspaces: workspaces,
		Transcoder: transcoder.New(engine, transcoder.DefaultProfile()),
		Delivery:   streaming.New(streaming.DefaultConfig()),
	})
	h := handlers.New(coord, upload.NewReader(upload.DefaultLimits()), engine, workspaces)

	return setupRouter(h, &config)
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t, "")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusServiceUnavailable},
		{http.MethodGet, "/healthz", http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/limits", http.StatusOK},
		{http.MethodGet, "/api/merge", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/merge", http.StatusServiceUnavailable},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/missing.js", http.StatusNotFound},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRouterTokenAuthCoversAPIOnly(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("token"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	router := newTestRouter(t, string(hash))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/limits", http.NoBody))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/limits", http.NoBody)
	req.Header.Set("Authorization", "Bearer token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with a valid token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Health probes must not require a token, got %d", w.Code)
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "mp4-creator "+startup.Version) {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestSweepCommand(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEMP_DIR", root)
	t.Setenv("WORKSPACE_PREFIX", "")

	orphan := filepath.Join(root, workspace.DefaultPrefix+"orphan")
	other := filepath.Join(root, "unrelated")
	for _, dir := range []string{orphan, other} {
		if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCommand(t, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "Removed 1 orphaned workspace(s)") {
		t.Errorf("Unexpected sweep output %q", out)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("Expected orphaned workspace to be removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("Unrelated directory must survive the sweep: %v", err)
	}
}

func TestProbeCommandFailsWithoutEngine(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEMP_DIR", t.TempDir())
	t.Setenv("FFMPEG_PATH", "/nonexistent/ffmpeg")

	_, err := runCommand(t, "probe")
	if err == nil || !strings.Contains(err.Error(), "engine unavailable") {
		t.Errorf("Expected engine unavailable error, got %v", err)
	}
}

func TestUnknownConfigFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	_, err := runCommand(t, "sweep", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
