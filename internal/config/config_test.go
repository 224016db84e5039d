package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.HTTPPort != 8901 {
		t.Errorf("Server.HTTPPort = %d, want 8901", cfg.Server.HTTPPort)
	}
	if cfg.Server.WebSocketPort != 8902 {
		t.Errorf("Server.WebSocketPort = %d, want 8902", cfg.Server.WebSocketPort)
	}
	if cfg.Limits.MaxOutputLines != 1000 {
		t.Errorf("Limits.MaxOutputLines = %d, want 1000", cfg.Limits.MaxOutputLines)
	}
	if cfg.Tmux.Command != "tmux" {
		t.Errorf("Tmux.Command = %q, want tmux", cfg.Tmux.Command)
	}
	if !strings.HasSuffix(cfg.State.Path, "sessions.json") {
		t.Errorf("State.Path = %q, want a sessions.json path", cfg.State.Path)
	}
	if !filepath.IsAbs(cfg.State.Path) {
		t.Errorf("State.Path = %q, want absolute", cfg.State.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  http_port: 9100
  websocket_port: 9101
state:
  path: ` + filepath.Join(dir, "state.json") + `
  save_interval_secs: 5
tmux:
  command: /usr/local/bin/tmux
  timeout_secs: 10
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 9100 {
		t.Errorf("Server.HTTPPort = %d, want 9100", cfg.Server.HTTPPort)
	}
	if cfg.Tmux.Command != "/usr/local/bin/tmux" {
		t.Errorf("Tmux.Command = %q", cfg.Tmux.Command)
	}
	if cfg.State.SaveIntervalSecs != 5 {
		t.Errorf("State.SaveIntervalSecs = %d, want 5", cfg.State.SaveIntervalSecs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "127.0.0.1", HTTPPort: 8901, WebSocketPort: 8902},
			State:   StateConfig{Path: "/tmp/sessions.json", SaveIntervalSecs: 30},
			Tmux:    TmuxConfig{Command: "tmux", TimeoutSecs: 5},
			Logging: LoggingConfig{Level: "info"},
			Limits:  LimitsConfig{MaxOutputLines: 1000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"localhost host", func(c *Config) { c.Server.Host = "localhost" }, false},
		{"bad host", func(c *Config) { c.Server.Host = "not a host!" }, true},
		{"port out of range", func(c *Config) { c.Server.HTTPPort = 70000 }, true},
		{"port collision", func(c *Config) { c.Server.WebSocketPort = c.Server.HTTPPort }, true},
		{"empty state path", func(c *Config) { c.State.Path = "" }, true},
		{"negative save interval", func(c *Config) { c.State.SaveIntervalSecs = -1 }, true},
		{"empty tmux command", func(c *Config) { c.Tmux.Command = "" }, true},
		{"zero tmux timeout", func(c *Config) { c.Tmux.TimeoutSecs = 0 }, true},
		{"zero output lines", func(c *Config) { c.Limits.MaxOutputLines = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
