package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LupusDei/adjutant-sub008/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage adjutant configuration.

Without subcommands, shows the current effective configuration.

Examples:
  adjutant config              # Show current config
  adjutant config init         # Create config file with defaults
  adjutant config path         # Show config file location
  adjutant config get <key>    # Get a config value
  adjutant config set <key> <value>  # Set a config value`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.adjutant/config.yaml.
Use --local to create ./config.yaml in the current directory.

Examples:
  adjutant config init          # Create ~/.adjutant/config.yaml
  adjutant config init --local  # Create ./config.yaml
  adjutant config init --force  # Overwrite existing file`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Run:   runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  adjutant config get server.http_port
  adjutant config get state.path
  adjutant config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key.

Creates the config file if it doesn't exist.
Keys use dot notation to access nested values.

Examples:
  adjutant config set server.http_port 9000
  adjutant config set logging.level debug
  adjutant config set state.watch false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.adjutant/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Host:            %s\n", cfg.Server.Host)
	fmt.Printf("HTTP Port:       %d\n", cfg.Server.HTTPPort)
	fmt.Printf("WebSocket Port:  %d\n", cfg.Server.WebSocketPort)
	fmt.Printf("State File:      %s\n", cfg.State.Path)
	fmt.Printf("State Watch:     %t\n", cfg.State.Watch)
	fmt.Printf("Save Interval:   %ds\n", cfg.State.SaveIntervalSecs)
	fmt.Printf("Tmux Command:    %s\n", cfg.Tmux.Command)
	fmt.Printf("Pipe Dir:        %s\n", cfg.Tmux.PipeDir)
	fmt.Printf("Log Level:       %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:      %s\n", cfg.Logging.Format)
	fmt.Printf("Max Output Lines: %d\n", cfg.Limits.MaxOutputLines)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		if !configInitForce {
			return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
		}
	}

	if err := writeDefaultConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit this file to customize adjutant behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config dir: %v\n", err)
		os.Exit(1)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	locations := []string{
		"./config.yaml",
		configPath,
		"/etc/adjutant/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}

	fmt.Printf("\nConfig directory: %s\n", configDir)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, key)
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid key: %s", key)
	}

	switch parts[0] {
	case "server":
		switch parts[1] {
		case "host":
			return cfg.Server.Host, nil
		case "http_port":
			return cfg.Server.HTTPPort, nil
		case "websocket_port":
			return cfg.Server.WebSocketPort, nil
		}
	case "state":
		switch parts[1] {
		case "path":
			return cfg.State.Path, nil
		case "save_interval_secs":
			return cfg.State.SaveIntervalSecs, nil
		case "watch":
			return cfg.State.Watch, nil
		}
	case "tmux":
		switch parts[1] {
		case "command":
			return cfg.Tmux.Command, nil
		case "timeout_secs":
			return cfg.Tmux.TimeoutSecs, nil
		case "pipe_dir":
			return cfg.Tmux.PipeDir, nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		}
	case "limits":
		switch parts[1] {
		case "max_output_lines":
			return cfg.Limits.MaxOutputLines, nil
		}
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		if nested, ok := current[parts[i]].(map[string]interface{}); ok {
			current = nested
		} else {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
	}

	current[parts[len(parts)-1]] = parseValue(key, value)
	return nil
}

func parseValue(key string, value string) interface{} {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	intKeys := []string{"http_port", "websocket_port", "save_interval_secs",
		"timeout_secs", "max_output_lines"}
	for _, k := range intKeys {
		if strings.HasSuffix(key, k) {
			var i int
			if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
				return i
			}
		}
	}

	return value
}

func writeDefaultConfig(path string) error {
	content := `# adjutant Configuration
# Copy this file to ~/.adjutant/config.yaml and modify as needed

# Server settings
server:
  # Bind address (use 0.0.0.0 to allow external connections)
  host: "127.0.0.1"

  # REST API port
  http_port: 8901

  # WebSocket port for live output streaming
  websocket_port: 8902

# Session state persistence
state:
  # Session state file (default: ~/.adjutant/sessions.json)
  # path: "~/.adjutant/sessions.json"

  # Periodic save cadence in seconds (0 disables periodic saves)
  save_interval_secs: 30

  # Notify connected clients when the state file is rewritten
  # externally (e.g. by another tool)
  watch: true

# tmux integration
tmux:
  # Path to tmux executable (or just "tmux" if in PATH)
  command: "tmux"

  # Timeout for tmux commands in seconds
  timeout_secs: 5

  # Directory for pane output pipe logs
  # pipe_dir: "~/.adjutant/pipes"

# Logging settings
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log format: console (human-readable) or json
  format: "console"

# Resource limits
limits:
  # Lines of output retained per session
  max_output_lines: 1000
`

	return os.WriteFile(path, []byte(content), 0o644)
}
