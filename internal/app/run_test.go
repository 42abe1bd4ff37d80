package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/pttman/internal/config"
	"github.com/hitoshi/pttman/internal/tool"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	clearEnv(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestBuild_WiresAllTools(t *testing.T) {
	cfg := loadTestConfig(t)

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	want := []string{
		tool.NameListPosts,
		tool.NameGetPostDetail,
		tool.NameSearchThreadPosts,
		tool.NameSearchPosts,
		tool.NameListPopularBoards,
		tool.NameSummarizePosts,
	}
	got := c.dispatcher.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuild_ListPopularBoardsWithoutNetwork(t *testing.T) {
	cfg := loadTestConfig(t)

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	env := c.dispatcher.Call(context.Background(), tool.NameListPopularBoards, nil)
	if env.IsError {
		t.Fatalf("unexpected failure envelope: %s", env.Text())
	}
	if !strings.HasPrefix(env.Text(), "PTT 熱門看板清單:") {
		t.Errorf("text = %q", env.Text())
	}
}

func TestBuild_UsesBoardsFile(t *testing.T) {
	cfg := loadTestConfig(t)
	path := filepath.Join(t.TempDir(), "boards.yaml")
	data := "popular:\n  - name: Test\n    description: 測試版\nfallback:\n  - Test\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("failed to write boards file: %v", err)
	}
	cfg.BoardsFile = path

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	env := c.dispatcher.Call(context.Background(), tool.NameListPopularBoards, nil)
	if !strings.Contains(env.Text(), "• Test: 測試版") {
		t.Errorf("text = %q, want board from file", env.Text())
	}
}

func TestBuild_MissingBoardsFile_ReturnsError(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.BoardsFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := build(cfg, discardLogger()); err == nil {
		t.Fatal("expected error for missing boards file, got nil")
	}
}

func TestBuild_LoopbackBaseURL(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.PTTBaseURL = "http://127.0.0.1:9999"

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	c.Close()
}

func TestRunServe_StopsOnContextCancel(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.ServerPort = "0"

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, c) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop after context cancel")
	}
}

func TestRunServe_InvalidPort_ReturnsError(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.ServerPort = "-1"

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	if err := runServe(context.Background(), cfg, c); err == nil {
		t.Fatal("expected listen error, got nil")
	}
}

func TestRunStdio_StopsOnCanceledContext(t *testing.T) {
	cfg := loadTestConfig(t)

	c, err := build(cfg, discardLogger())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	var out strings.Builder
	if err := runStdio(ctx, c, pr, &out); err != nil {
		t.Errorf("runStdio() error = %v, want nil", err)
	}
}

func TestRunHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			u, _ := url.Parse(ts.URL)
			err := runHealthcheck(u.Port())
			if (err != nil) != tt.wantErr {
				t.Errorf("runHealthcheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_Healthcheck_NoServer(t *testing.T) {
	t.Setenv("SERVER_PORT", "1")

	var buf strings.Builder
	if err := Run(&buf, []string{"healthcheck"}); err == nil {
		t.Fatal("expected healthcheck error without a server, got nil")
	}
}
