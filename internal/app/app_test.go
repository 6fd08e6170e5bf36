package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New("test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a
}

func TestNewWiresComponents(t *testing.T) {
	a := newTestApp(t)

	if a.Engine() == nil {
		t.Error("Engine() returned nil")
	}
	if a.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if a.repository == nil {
		t.Error("repository not wired")
	}
}

func TestStartupAndShutdownAreIdempotent(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	// Test config disables cleanup, so Startup must not leave a loop behind
	a.Startup(ctx)
	a.Startup(ctx)

	a.Shutdown(ctx)
	a.Shutdown(ctx)
}

func TestEngineUsableAfterStartup(t *testing.T) {
	a := newTestApp(t)
	a.Startup(context.Background())

	// No goal configured yet; progress lookup should fail cleanly rather
	// than panic, proving the engine is wired to a live database.
	_, err := a.Engine().GoalProgress(context.Background(), "no-such-app", time.Now())
	if err == nil {
		t.Error("GoalProgress() for unknown app should fail")
	}
}

func TestLoadEngineConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("quickReopenWindowSeconds: 45\n"), 0o600); err != nil {
		t.Fatalf("writing policy file: %v", err)
	}
	t.Setenv("AWARE_ENGINE_CONFIG", path)

	config, err := loadEngineConfig()
	if err != nil {
		t.Fatalf("loadEngineConfig() failed: %v", err)
	}
	if config.QuickReopenWindowSeconds != 45 {
		t.Errorf("QuickReopenWindowSeconds = %d, want 45", config.QuickReopenWindowSeconds)
	}
}

func TestLoadEngineConfigBadFile(t *testing.T) {
	t.Setenv("AWARE_ENGINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := loadEngineConfig(); err == nil {
		t.Error("loadEngineConfig() with missing file should fail")
	}
}
