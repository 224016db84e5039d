package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/domain/ports"
	"github.com/LupusDei/adjutant-sub008/internal/session"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 64 * 1024

// Server is the REST API server.
type Server struct {
	server    *http.Server
	router    *mux.Router
	addr      string
	registry  *session.Registry
	connector *session.Connector
	eventHub  ports.EventHub
	statusFn  func() map[string]interface{}
}

// New creates the REST server. statusFn supplies the daemon status
// payload so the server stays decoupled from app lifecycle state.
func New(host string, port int, registry *session.Registry, connector *session.Connector, eventHub ports.EventHub, statusFn func() map[string]interface{}) *Server {
	s := &Server{
		addr:      fmt.Sprintf("%s:%d", host, port),
		registry:  registry,
		connector: connector,
		eventHub:  eventHub,
		statusFn:  statusFn,
		router:    mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	s.router.HandleFunc("/api/sessions", s.handleListSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions", s.handleCreateSession).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{id}", s.handleRemoveSession).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/sessions/{id}/status", s.handleUpdateStatus).Methods(http.MethodPut)
	s.router.HandleFunc("/api/sessions/{id}/output", s.handleGetOutput).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{id}/output", s.handleClearOutput).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/sessions/{id}/attach", s.handleAttach).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{id}/detach", s.handleDetach).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{id}/capture", s.handleCapture).Methods(http.MethodGet)

	return s
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start() error {
	var handler http.Handler = s.router
	handler = timeoutMiddleware(10*time.Second, handler)
	handler = requestLoggingMiddleware(handler)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	log.Info().Str("addr", s.addr).Msg("HTTP server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("HTTP server stopping")
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statusFn())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := []session.Info{}
	switch q := r.URL.Query(); {
	case q.Get("tmuxSession") != "":
		if info, ok := s.registry.FindByTmuxSession(q.Get("tmuxSession")); ok {
			sessions = []session.Info{info}
		}
	case q.Get("name") != "":
		sessions = append(sessions, s.registry.FindByName(q.Get("name"))...)
	default:
		sessions = s.registry.All()
	}

	writeJSON(w, http.StatusOK, SessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, err.Error())
		return
	}

	info, err := s.registry.Create(session.Spec{
		Name:          req.Name,
		TmuxSession:   req.TmuxSession,
		TmuxPane:      req.TmuxPane,
		ProjectPath:   req.ProjectPath,
		Mode:          session.Mode(req.Mode),
		WorkspaceType: session.WorkspaceType(req.WorkspaceType),
	})
	if err != nil {
		if errors.Is(err, domain.ErrMissingField) || errors.Is(err, domain.ErrInvalidField) {
			writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to create session")
		writeError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "failed to create session")
		return
	}

	if err := s.registry.Save(); err != nil {
		log.Error().Err(err).Msg("failed to persist state after create")
	}
	s.publish(events.NewSessionCreatedEvent(info.ID, info.Name, info.TmuxSession, info.TmuxPane, info.ProjectPath, string(info.Mode)))

	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Stop any live pipe before the session disappears from the
	// registry, so the follower goroutine is not left running.
	if s.connector != nil && s.connector.IsAttached(id) {
		s.connector.Detach(r.Context(), id)
	}

	if !s.registry.Remove(id) {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}

	if err := s.registry.Save(); err != nil {
		log.Error().Err(err).Msg("failed to persist state after remove")
	}
	s.publish(events.NewSessionRemovedEvent(id))

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, err.Error())
		return
	}

	status, ok := session.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, "unknown status: "+req.Status)
		return
	}

	if !s.registry.UpdateStatus(id, status) {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}
	s.publish(events.NewSessionStatusChangedEvent(id, string(status)))

	info, _ := s.registry.Get(id)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lines, ok := s.registry.GetOutputBuffer(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}
	writeJSON(w, http.StatusOK, OutputResponse{
		SessionID: id,
		Lines:     lines,
		Count:     len(lines),
	})
}

func (s *Server) handleClearOutput(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.registry.ClearOutputBuffer(id) {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "id": id})
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	info, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}

	if !s.connector.Attach(r.Context(), id) {
		writeError(w, http.StatusBadGateway, domain.ErrCodeTmuxError, "failed to attach pipe to pane "+info.TmuxPane)
		return
	}
	s.publish(events.NewPipeAttachedEvent(id, info.TmuxPane))

	writeJSON(w, http.StatusOK, PipeResponse{SessionID: id, Attached: true})
}

func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	info, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}

	if !s.connector.Detach(r.Context(), id) {
		writeError(w, http.StatusConflict, domain.ErrCodeTmuxError, "no active pipe for session: "+id)
		return
	}
	s.publish(events.NewPipeDetachedEvent(id, info.TmuxPane))

	writeJSON(w, http.StatusOK, PipeResponse{SessionID: id, Attached: false})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, domain.ErrCodeSessionNotFound, "unknown session: "+id)
		return
	}

	content, ok := s.connector.CapturePane(r.Context(), id)
	if !ok {
		writeError(w, http.StatusBadGateway, domain.ErrCodeTmuxError, "capture-pane failed for session: "+id)
		return
	}

	writeJSON(w, http.StatusOK, CaptureResponse{SessionID: id, Content: content})
}

func (s *Server) publish(ev *events.BaseEvent) {
	if s.eventHub != nil {
		s.eventHub.Publish(ev)
	}
}

// decodeJSON decodes a bounded JSON request body.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// requestLoggingMiddleware logs each request with method, path and
// duration.
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// timeoutMiddleware bounds request handling time.
func timeoutMiddleware(timeout time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
