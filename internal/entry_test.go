package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/tissue/internal/noteservice"
	"github.com/starford/tissue/internal/testutil"
)

func TestNewLogger_File(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "tissue.log")
	var fallback bytes.Buffer
	logger, closeFn := NewLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFile: logFile}, &fallback)

	logger.Debug("hidden")
	logger.Info("hello", slog.String("id", "x"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("log line is not a single JSON record: %q", data)
	}
	if rec["msg"] != "hello" || rec["id"] != "x" {
		t.Errorf("record = %v", rec)
	}
	if fallback.Len() != 0 {
		t.Error("file logging should not write to the fallback writer")
	}
}

func TestNewLogger_Writer(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := NewLogger(ApplicationConfig{LogLevel: slog.LevelWarn}, &buf)
	defer closeFn()
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("level not honoured: %q", buf.String())
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without config")
	}
}

func testHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	_, store := testutil.TestNotebook(t, map[string]string{"a.md": "# #a Alpha\n\n#x\n"})
	svc, err := noteservice.New(store, noteservice.WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatal(err)
	}
	return NewHTTPHandler(cfg, svc, nil)
}

func TestHTTPHandler_Health(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}
	h := testHandler(t, cfg)

	for path, want := range map[string]string{
		"/health/live":  `{"status":"ok"}`,
		"/health/ready": `{"status":"ok","notes":1}`,
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Errorf("%s = %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestHTTPHandler_APIMountedWithAuth(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}
	h := testHandler(t, cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notes/a", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed get = %d, want 200", w.Code)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Notebook.Path = filepath.Join(dir, "notes")
	cfg.SQLite.Path = filepath.Join(dir, "tissue.db")
	cfg.App.HTTP.Port = freePort(t)

	app, err := New(WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	waitReady(t, cfg.App.HTTP.Port)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v after cancel", err)
	}
}
