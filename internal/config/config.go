// Package config handles configuration management for adjutant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	State   StateConfig   `mapstructure:"state"`
	Tmux    TmuxConfig    `mapstructure:"tmux"`
	Logging LoggingConfig `mapstructure:"logging"`
	Limits  LimitsConfig  `mapstructure:"limits"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	HTTPPort      int    `mapstructure:"http_port"`
	WebSocketPort int    `mapstructure:"websocket_port"`
}

// StateConfig holds session persistence configuration.
type StateConfig struct {
	Path             string `mapstructure:"path"`              // session state file
	SaveIntervalSecs int    `mapstructure:"save_interval_secs"` // periodic save cadence, 0 disables
	Watch            bool   `mapstructure:"watch"`              // notify clients on external rewrites
}

// TmuxConfig holds tmux invocation configuration.
type TmuxConfig struct {
	Command     string `mapstructure:"command"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	PipeDir     string `mapstructure:"pipe_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LimitsConfig holds various limits.
type LimitsConfig struct {
	MaxOutputLines int `mapstructure:"max_output_lines"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.adjutant")
		v.AddConfigPath("/etc/adjutant")
	}

	// Environment variable prefix
	v.SetEnvPrefix("ADJUTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.http_port", 8901)
	v.SetDefault("server.websocket_port", 8902)

	// State defaults: path resolved against the user dir in postProcess
	v.SetDefault("state.path", "")
	v.SetDefault("state.save_interval_secs", 30)
	v.SetDefault("state.watch", true)

	// Tmux defaults
	v.SetDefault("tmux.command", "tmux")
	v.SetDefault("tmux.timeout_secs", 5)
	v.SetDefault("tmux.pipe_dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Limits defaults
	v.SetDefault("limits.max_output_lines", 1000)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	if cfg.State.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config dir: %w", err)
		}
		cfg.State.Path = filepath.Join(dir, "sessions.json")
	}
	if cfg.Tmux.PipeDir == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config dir: %w", err)
		}
		cfg.Tmux.PipeDir = filepath.Join(dir, "pipes")
	}

	absState, err := filepath.Abs(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve state path: %w", err)
	}
	cfg.State.Path = absState

	return nil
}

// GetConfigDir returns the user config directory for adjutant.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".adjutant"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
