// Package app orchestrates all components of adjutant.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/LupusDei/adjutant-sub008/internal/config"
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/hub"
	httpserver "github.com/LupusDei/adjutant-sub008/internal/server/http"
	wsserver "github.com/LupusDei/adjutant-sub008/internal/server/websocket"
	"github.com/LupusDei/adjutant-sub008/internal/session"
	"github.com/LupusDei/adjutant-sub008/internal/tmux"
	"github.com/LupusDei/adjutant-sub008/internal/watcher"
)

// outputBridgeID identifies the app's connector subscription that
// forwards pane output onto the event hub.
const outputBridgeID = "app-output-bridge"

// App is the main application struct that wires the registry,
// connector, servers and watcher together.
type App struct {
	cfg     *config.Config
	version string

	hub          *hub.Hub
	registry     *session.Registry
	connector    *session.Connector
	httpServer   *httpserver.Server
	wsServer     *wsserver.Server
	stateWatcher *watcher.StateWatcher

	instanceID string
	startTime  time.Time

	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &App{
		cfg:        cfg,
		version:    version,
		hub:        hub.New(),
		instanceID: uuid.New().String(),
	}, nil
}

// Start starts the application and blocks until the context is
// cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	// Restore persisted sessions before anything can observe the
	// registry. Restored sessions come back offline with no pipes.
	a.registry = session.NewRegistry(a.cfg.State.Path, a.cfg.Limits.MaxOutputLines)
	if n := a.registry.Load(); n > 0 {
		log.Info().Int("sessions", n).Str("path", a.cfg.State.Path).Msg("restored sessions from state file")
	}

	// A bare "tmux" command is resolved against well-known install
	// locations too, since launchd-started daemons get a minimal PATH.
	tmuxBin := a.cfg.Tmux.Command
	if tmuxBin == "tmux" {
		tmuxBin = tmux.FindBinary()
	}
	runner := &tmux.ExecRunner{
		Bin:     tmuxBin,
		Timeout: time.Duration(a.cfg.Tmux.TimeoutSecs) * time.Second,
	}
	a.connector = session.NewConnector(a.registry, tmux.NewClient(runner), a.cfg.Tmux.PipeDir)

	// Bridge pane output onto the hub so watching clients receive it
	// live. The connector has already appended the line to the
	// session's buffer by the time the handler runs.
	a.connector.Subscribe(outputBridgeID, func(ev session.OutputEvent) {
		a.hub.Publish(events.NewSessionOutputEvent(ev.SessionID, ev.Line))
	})

	a.wsServer = wsserver.NewServer(
		a.cfg.Server.Host,
		a.cfg.Server.WebSocketPort,
		a.registry,
		a.connector,
		a.hub,
	)
	if err := a.wsServer.Start(); err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}

	a.httpServer = httpserver.New(
		a.cfg.Server.Host,
		a.cfg.Server.HTTPPort,
		a.registry,
		a.connector,
		a.hub,
		a.getStatus,
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if a.cfg.State.Watch {
		a.stateWatcher = watcher.New(a.cfg.State.Path, a.hub)
		if err := a.stateWatcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to start state file watcher")
		}
	}

	if a.cfg.State.SaveIntervalSecs > 0 {
		go a.saveLoop(ctx, time.Duration(a.cfg.State.SaveIntervalSecs)*time.Second)
	}

	a.printConnectionInfo()

	<-ctx.Done()

	return a.shutdown()
}

// saveLoop periodically persists the registry so a crash loses at most
// one interval of registry changes.
func (a *App) saveLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.registry.Save(); err != nil {
				log.Error().Err(err).Msg("periodic state save failed")
			}
		}
	}
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	if a.stateWatcher != nil {
		if err := a.stateWatcher.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping state watcher")
		}
	}

	// Stop pipes before saving so pipeActive never leaks into a
	// final state written during teardown.
	detachCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.connector.DetachAll(detachCtx)
	cancel()
	a.connector.Unsubscribe(outputBridgeID)

	if err := a.registry.Save(); err != nil {
		log.Error().Err(err).Msg("final state save failed")
	}

	if a.wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.wsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping WebSocket server")
		}
		cancel()
	}

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping HTTP server")
		}
		cancel()
	}

	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}

	return nil
}

func (a *App) getStatus() map[string]interface{} {
	wsClients := 0
	if a.wsServer != nil {
		wsClients = a.wsServer.ClientCount()
	}

	return map[string]interface{}{
		"instance_id":       a.instanceID,
		"version":           a.version,
		"uptime_seconds":    a.UptimeSeconds(),
		"session_count":     a.registry.Size(),
		"active_pipes":      a.connector.ActivePipeCount(),
		"connected_clients": wsClients,
		"state_path":        a.cfg.State.Path,
		"state_watch":       a.cfg.State.Watch,
	}
}

// printConnectionInfo prints connection information to the console.
func (a *App) printConnectionInfo() {
	httpURL := fmt.Sprintf("http://%s:%d", a.cfg.Server.Host, a.cfg.Server.HTTPPort)
	wsURL := fmt.Sprintf("ws://%s:%d/ws", a.cfg.Server.Host, a.cfg.Server.WebSocketPort)

	fmt.Println()
	fmt.Println("adjutant ready")
	fmt.Printf("  API:        %s\n", httpURL)
	fmt.Printf("  WebSocket:  %s\n", wsURL)
	fmt.Printf("  State file: %s\n", a.cfg.State.Path)
	fmt.Println()
}

// UptimeSeconds returns the daemon uptime in seconds.
func (a *App) UptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(a.startTime).Seconds())
}

// InstanceID returns the daemon instance id generated at startup.
func (a *App) InstanceID() string {
	return a.instanceID
}

// Registry exposes the session registry.
func (a *App) Registry() *session.Registry {
	return a.registry
}

// IsRunning reports whether the app has been started.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}
