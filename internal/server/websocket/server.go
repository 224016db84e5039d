package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/domain/ports"
	"github.com/LupusDei/adjutant-sub008/internal/hub"
	"github.com/LupusDei/adjutant-sub008/internal/session"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	// Generous for mobile network tolerance.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client. Sized for bursts of agent output.
	sendBufferSize = 1024

	// Application-level heartbeat interval.
	heartbeatInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards connect from app origins; the server binds
		// localhost by default.
		return true
	},
}

// CommandHandler is a function that handles incoming client commands.
type CommandHandler func(clientID string, message []byte)

// SessionDirectory is the registry surface the WebSocket server needs:
// client membership, buffer replay, and lookups.
type SessionDirectory interface {
	Get(id string) (session.Info, bool)
	AddClient(id, clientID string) bool
	RemoveClient(id, clientID string) bool
	RemoveClientEverywhere(clientID string) []string
	GetOutputBuffer(id string) ([]string, bool)
	Size() int
}

// PipeStatus reports connector state for heartbeats.
type PipeStatus interface {
	ActivePipeCount() int
}

// command is the envelope for incoming client messages.
type command struct {
	Command   string `json:"command"`
	SessionID string `json:"session_id,omitempty"`
}

// Server is the WebSocket server.
type Server struct {
	addr      string
	server    *http.Server
	directory SessionDirectory
	pipes     PipeStatus
	hub       ports.EventHub

	mu      sync.RWMutex
	clients map[string]*Client
	filters map[string]*hub.FilteredSubscriber

	heartbeatDone chan struct{}
	heartbeatSeq  int64
	startTime     time.Time
}

// NewServer creates a new WebSocket server.
func NewServer(host string, port int, directory SessionDirectory, pipes PipeStatus, eventHub ports.EventHub) *Server {
	addr := fmt.Sprintf("%s:%d", host, port)
	s := &Server{
		addr:          addr,
		directory:     directory,
		pipes:         pipes,
		hub:           eventHub,
		clients:       make(map[string]*Client),
		filters:       make(map[string]*hub.FilteredSubscriber),
		heartbeatDone: make(chan struct{}),
		startTime:     time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
		// No ReadTimeout/WriteTimeout: those apply to the underlying
		// HTTP connection and would sever long-lived WebSockets. The
		// read/write pumps manage their own deadlines.
	}

	return s
}

// Start starts the WebSocket server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("WebSocket server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("WebSocket server error")
		}
	}()

	go s.heartbeatLoop()

	return nil
}

// Stop gracefully stops the WebSocket server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("WebSocket server stopping")

	close(s.heartbeatDone)

	s.mu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]*Client)
	s.filters = make(map[string]*hub.FilteredSubscriber)
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// handleWebSocket handles WebSocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, s.handleCommand, func(id string) {
		if s.hub != nil {
			s.hub.Unsubscribe(id)
		}
		s.dropClient(id)
	})

	// New connections get a session-filtered subscription; until the
	// client watches a session it receives all events.
	filtered := hub.NewFilteredSubscriber(NewClientSubscriber(client))

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.filters[client.ID()] = filtered
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Subscribe(filtered)
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

// handleCommand processes a client message: watch and unwatch manage
// session membership; watch replays the session's buffered output
// before live events resume.
func (s *Server) handleCommand(clientID string, message []byte) {
	var cmd command
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.sendError(clientID, domain.ErrCodeInvalidPayload, "malformed command")
		return
	}

	switch cmd.Command {
	case "watch":
		s.handleWatch(clientID, cmd.SessionID)
	case "unwatch":
		s.handleUnwatch(clientID, cmd.SessionID)
	case "watch_all":
		s.mu.RLock()
		filtered := s.filters[clientID]
		s.mu.RUnlock()
		if filtered != nil {
			filtered.WatchAll()
		}
	default:
		s.sendError(clientID, domain.ErrCodeInvalidPayload, "unknown command: "+cmd.Command)
	}
}

func (s *Server) handleWatch(clientID, sessionID string) {
	if !s.directory.AddClient(sessionID, clientID) {
		s.sendError(clientID, domain.ErrCodeSessionNotFound, "unknown session: "+sessionID)
		return
	}

	s.mu.RLock()
	client := s.clients[clientID]
	filtered := s.filters[clientID]
	s.mu.RUnlock()
	if client == nil {
		return
	}

	// Replay buffered output so the dashboard has history before the
	// live stream resumes.
	if lines, ok := s.directory.GetOutputBuffer(sessionID); ok {
		for _, line := range lines {
			if data, err := events.NewSessionOutputEvent(sessionID, line).ToJSON(); err == nil {
				client.Send(data)
			}
		}
	}

	if filtered != nil {
		filtered.WatchSession(sessionID)
	}

	if s.hub != nil {
		s.hub.Publish(events.NewSessionJoinedEvent(sessionID, clientID))
	}

	log.Debug().Str("client_id", clientID).Str("session_id", sessionID).Msg("client watching session")
}

func (s *Server) handleUnwatch(clientID, sessionID string) {
	if !s.directory.RemoveClient(sessionID, clientID) {
		s.sendError(clientID, domain.ErrCodeSessionNotFound, "not watching session: "+sessionID)
		return
	}

	s.mu.RLock()
	filtered := s.filters[clientID]
	s.mu.RUnlock()
	if filtered != nil {
		filtered.UnwatchSession(sessionID)
	}

	if s.hub != nil {
		s.hub.Publish(events.NewSessionLeftEvent(sessionID, clientID))
	}
}

// dropClient removes a disconnected client and its session memberships.
func (s *Server) dropClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	delete(s.filters, id)
	s.mu.Unlock()

	for _, sessionID := range s.directory.RemoveClientEverywhere(id) {
		if s.hub != nil {
			s.hub.Publish(events.NewSessionLeftEvent(sessionID, id))
		}
	}

	log.Info().Str("client_id", id).Msg("client disconnected")
}

// sendError sends an error event to a single client.
func (s *Server) sendError(clientID, code, message string) {
	s.mu.RLock()
	client := s.clients[clientID]
	s.mu.RUnlock()
	if client == nil {
		return
	}
	if data, err := events.NewErrorEvent(code, message).ToJSON(); err == nil {
		client.Send(data)
	}
}

// Broadcast sends a message to all connected clients.
func (s *Server) Broadcast(message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		client.Send(message)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// heartbeatLoop broadcasts periodic heartbeat events to all connected
// clients, beyond WebSocket ping/pong frames.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.heartbeatDone:
			return

		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

func (s *Server) broadcastHeartbeat() {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	if clientCount == 0 {
		return
	}

	activePipes := 0
	if s.pipes != nil {
		activePipes = s.pipes.ActivePipeCount()
	}

	seq := atomic.AddInt64(&s.heartbeatSeq, 1)
	heartbeat := events.NewHeartbeatEvent(
		seq,
		s.directory.Size(),
		activePipes,
		int64(time.Since(s.startTime).Seconds()),
	)

	data, err := heartbeat.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	s.Broadcast(data)
	log.Trace().Int64("seq", seq).Int("clients", clientCount).Msg("heartbeat sent")
}
