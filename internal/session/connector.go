package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/tmux"
	"github.com/rs/zerolog/log"
)

// followPollInterval is how often a pipe follower re-checks its log
// file for appended output once it has caught up.
const followPollInterval = 100 * time.Millisecond

// OutputEvent is a single captured output line from a session's pane.
type OutputEvent struct {
	SessionID string
	Line      string
	Time      time.Time
}

// OutputHandler consumes captured output events.
type OutputHandler func(OutputEvent)

// pipe tracks one live pipe-pane attachment.
type pipe struct {
	pane    string
	logPath string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Connector bridges sessions to their tmux panes. Attach opens a
// pipe-pane into a per-session log file and a follower goroutine feeds
// appended lines into the registry's buffer and to all subscribers.
//
// Attach and detach are serialized by the connector's mutex, so a pipe
// is never registered twice for the same session. Attachment is a
// two-state machine per session: detached -> attached on Attach
// success, attached -> detached on Detach; Attach while attached and
// Detach while detached are no-ops.
type Connector struct {
	registry *Registry
	client   *tmux.Client
	pipeDir  string

	mu    sync.Mutex // serializes attach/detach and guards pipes
	pipes map[string]*pipe

	subMu sync.RWMutex
	subs  map[string]OutputHandler
}

// NewConnector creates a connector for the given registry and tmux
// client. Pipe log files are placed under pipeDir.
func NewConnector(registry *Registry, client *tmux.Client, pipeDir string) *Connector {
	return &Connector{
		registry: registry,
		client:   client,
		pipeDir:  pipeDir,
		pipes:    make(map[string]*pipe),
		subs:     make(map[string]OutputHandler),
	}
}

// Subscribe registers a handler for captured output, keyed by id.
// Re-subscribing with an existing id replaces the handler.
func (c *Connector) Subscribe(id string, handler OutputHandler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs[id] = handler
}

// Unsubscribe removes a handler.
func (c *Connector) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subs, id)
}

// Attach opens a live output pipe for the session's pane. Unknown
// session ids return false. Attaching an already-attached session is a
// no-op returning true; the pipe command is not reissued, even if the
// session's pane has changed since (detach first to move a pipe). On
// command failure nothing is recorded and false is returned.
func (c *Connector) Attach(ctx context.Context, id string) bool {
	info, ok := c.registry.Get(id)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, attached := c.pipes[id]; attached {
		return true
	}

	if err := os.MkdirAll(c.pipeDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", c.pipeDir).Msg("failed to create pipe dir")
		return false
	}

	logPath := filepath.Join(c.pipeDir, id+".log")
	// Truncate any stale log from a previous attachment so the follower
	// only sees output from this pipe.
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		log.Error().Err(err).Str("path", logPath).Msg("failed to create pipe log")
		return false
	}

	dest := fmt.Sprintf("cat >> %q", logPath)
	if err := c.client.PipePane(ctx, info.TmuxPane, dest); err != nil {
		log.Warn().Err(err).
			Str("session_id", id).
			Str("pane", info.TmuxPane).
			Msg("pipe-pane failed")
		return false
	}

	followCtx, cancel := context.WithCancel(context.Background())
	p := &pipe{
		pane:    info.TmuxPane,
		logPath: logPath,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.pipes[id] = p
	c.registry.setPipeActive(id, true)

	go c.follow(followCtx, id, logPath, p.done)

	log.Info().
		Str("session_id", id).
		Str("pane", info.TmuxPane).
		Str("log", logPath).
		Msg("pipe attached")
	return true
}

// Detach stops the session's pipe. Returns false when no pipe is
// attached. Detach is best-effort: the stop command's outcome is
// logged but local state is cleared regardless, so a failing tmux
// server can never leave a stale attached entry.
func (c *Connector) Detach(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detachLocked(ctx, id)
}

func (c *Connector) detachLocked(ctx context.Context, id string) bool {
	p, ok := c.pipes[id]
	if !ok {
		return false
	}

	if err := c.client.StopPipe(ctx, p.pane); err != nil {
		log.Warn().Err(err).
			Str("session_id", id).
			Str("pane", p.pane).
			Msg("pipe-pane stop failed, clearing state anyway")
	}

	p.cancel()
	// Wait for the follower to exit so a re-Attach cannot truncate a
	// log file the old follower is still reading.
	<-p.done
	delete(c.pipes, id)
	c.registry.setPipeActive(id, false)

	log.Info().Str("session_id", id).Str("pane", p.pane).Msg("pipe detached")
	return true
}

// IsAttached reports whether the session has a live pipe.
func (c *Connector) IsAttached(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pipes[id]
	return ok
}

// ActivePipeCount returns the number of live pipes.
func (c *Connector) ActivePipeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipes)
}

// DetachAll detaches every attached session. Individual stop-command
// failures do not abort the remaining detaches.
func (c *Connector) DetachAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.pipes {
		c.detachLocked(ctx, id)
	}
}

// CapturePane snapshots the session's currently visible pane text,
// returned verbatim including embedded newlines. Unknown sessions and
// command failures yield ("", false).
func (c *Connector) CapturePane(ctx context.Context, id string) (string, bool) {
	info, ok := c.registry.Get(id)
	if !ok {
		return "", false
	}

	out, err := c.client.CapturePane(ctx, info.TmuxPane)
	if err != nil {
		log.Warn().Err(err).
			Str("session_id", id).
			Str("pane", info.TmuxPane).
			Msg("capture-pane failed")
		return "", false
	}
	return out, true
}

// Dispatch feeds one captured line through the pipeline: append to the
// registry's buffer first, then fan out to subscribers. A panicking
// handler is isolated so it cannot prevent delivery to the rest.
func (c *Connector) Dispatch(id, line string) {
	c.registry.AppendOutput(id, line)

	ev := OutputEvent{SessionID: id, Line: line, Time: time.Now().UTC()}

	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for subID, handler := range c.subs {
		c.invoke(subID, handler, ev)
	}
}

func (c *Connector) invoke(subID string, handler OutputHandler, ev OutputEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("subscriber_id", subID).
				Interface("panic", r).
				Msg("output handler panicked")
		}
	}()
	handler(ev)
}

// follow tails the pipe log file, dispatching each complete line.
// It polls for appended data once caught up and exits when the pipe is
// detached.
func (c *Connector) follow(ctx context.Context, id, path string, done chan struct{}) {
	defer close(done)

	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open pipe log")
		return
	}
	defer func() { _ = f.Close() }()

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	var pending strings.Builder
	for {
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			pending.WriteString(chunk)
			if strings.HasSuffix(chunk, "\n") {
				c.Dispatch(id, strings.TrimRight(pending.String(), "\r\n"))
				pending.Reset()
			}
		}
		if err == nil {
			continue
		}
		if err != io.EOF {
			log.Warn().Err(err).Str("session_id", id).Msg("pipe log read error")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
