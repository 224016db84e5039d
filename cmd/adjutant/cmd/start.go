package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/LupusDei/adjutant-sub008/internal/app"
	"github.com/LupusDei/adjutant-sub008/internal/config"
)

var (
	httpPort  int
	wsPort    int
	statePath string
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the adjutant daemon",
	Long: `Start the adjutant daemon to begin supervising agent sessions.

The daemon restores previously registered sessions from the state
file, serves the REST API and WebSocket endpoint, and pipes tmux pane
output to watching dashboard clients.

Example:
  adjutant start
  adjutant start --http-port 9000 --ws-port 9001
  adjutant start --state /var/lib/adjutant/sessions.json`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&httpPort, "http-port", 0, "REST API port (default: 8901)")
	startCmd.Flags().IntVar(&wsPort, "ws-port", 0, "WebSocket port (default: 8902)")
	startCmd.Flags().StringVar(&statePath, "state", "", "session state file (default: ~/.adjutant/sessions.json)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if httpPort != 0 {
		cfg.Server.HTTPPort = httpPort
	}
	if wsPort != 0 {
		cfg.Server.WebSocketPort = wsPort
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}

	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Int("http_port", cfg.Server.HTTPPort).
		Int("ws_port", cfg.Server.WebSocketPort).
		Str("state", cfg.State.Path).
		Msg("starting adjutant")

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("adjutant stopped")
	return nil
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
