package config

import (
	"fmt"
	"net"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateState(&cfg.State); err != nil {
		return err
	}

	if err := validateTmux(&cfg.Tmux); err != nil {
		return err
	}

	if err := validateLimits(&cfg.Limits); err != nil {
		return err
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Host != "" {
		if ip := net.ParseIP(cfg.Host); ip == nil && cfg.Host != "localhost" {
			return fmt.Errorf("server.host %q is not a valid IP address or localhost", cfg.Host)
		}
	}

	if err := validatePort(cfg.HTTPPort, "server.http_port"); err != nil {
		return err
	}
	if err := validatePort(cfg.WebSocketPort, "server.websocket_port"); err != nil {
		return err
	}
	if cfg.HTTPPort == cfg.WebSocketPort {
		return fmt.Errorf("server.http_port and server.websocket_port must differ (both %d)", cfg.HTTPPort)
	}

	return nil
}

func validateState(cfg *StateConfig) error {
	if cfg.Path == "" {
		return fmt.Errorf("state.path must not be empty")
	}
	if cfg.SaveIntervalSecs < 0 {
		return fmt.Errorf("state.save_interval_secs must not be negative (got %d)", cfg.SaveIntervalSecs)
	}
	return nil
}

func validateTmux(cfg *TmuxConfig) error {
	if cfg.Command == "" {
		return fmt.Errorf("tmux.command must not be empty")
	}
	if cfg.TimeoutSecs <= 0 {
		return fmt.Errorf("tmux.timeout_secs must be positive (got %d)", cfg.TimeoutSecs)
	}
	return nil
}

func validateLimits(cfg *LimitsConfig) error {
	if cfg.MaxOutputLines <= 0 {
		return fmt.Errorf("limits.max_output_lines must be positive (got %d)", cfg.MaxOutputLines)
	}
	return nil
}

func validatePort(port int, field string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d is out of range (1-65535)", field, port)
	}
	return nil
}
