package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:          "127.0.0.1",
			HTTPPort:      18901,
			WebSocketPort: 18902,
		},
		State: config.StateConfig{
			Path: filepath.Join(dir, "sessions.json"),
		},
		Tmux: config.TmuxConfig{
			Command:     "tmux",
			TimeoutSecs: 5,
			PipeDir:     filepath.Join(dir, "pipes"),
		},
		Limits: config.LimitsConfig{
			MaxOutputLines: 100,
		},
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	app, err := New(cfg, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if app.cfg != cfg {
		t.Error("config not set correctly")
	}
	if app.version != "1.0.0" {
		t.Errorf("version = %s, want 1.0.0", app.version)
	}
	if app.hub == nil {
		t.Error("hub should be initialized")
	}
	if app.instanceID == "" {
		t.Error("instanceID should be generated")
	}
	if app.IsRunning() {
		t.Error("app should not be running initially")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.HTTPPort = -1

	if _, err := New(cfg, "1.0.0"); err == nil {
		t.Error("New() should reject an invalid config")
	}
}

func TestNew_GeneratesUniqueInstanceID(t *testing.T) {
	app1, _ := New(testConfig(t), "1.0.0")
	app2, _ := New(testConfig(t), "1.0.0")

	if app1.InstanceID() == app2.InstanceID() {
		t.Error("each app should have a unique instance ID")
	}
}

func TestApp_UptimeBeforeStart(t *testing.T) {
	app, _ := New(testConfig(t), "1.0.0")

	if got := app.UptimeSeconds(); got != 0 {
		t.Errorf("UptimeSeconds() = %d before start, want 0", got)
	}
}

func TestApp_StartAndShutdown(t *testing.T) {
	app, err := New(testConfig(t), "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()

	// Wait for the HTTP server to come up
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get("http://127.0.0.1:18901/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("health endpoint never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !app.IsRunning() {
		t.Error("app should report running after Start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if app.IsRunning() {
		t.Error("app should not report running after shutdown")
	}
}

func TestApp_StartTwice(t *testing.T) {
	app, _ := New(testConfig(t), "1.0.0")

	app.mu.Lock()
	app.running = true
	app.mu.Unlock()

	if err := app.Start(context.Background()); err == nil {
		t.Error("second Start() should fail while running")
	}
}
