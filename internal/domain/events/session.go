package events

// SessionCreatedPayload is the payload for session_created events.
type SessionCreatedPayload struct {
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	TmuxSession string `json:"tmuxSession"`
	TmuxPane    string `json:"tmuxPane"`
	ProjectPath string `json:"projectPath"`
	Mode        string `json:"mode"`
}

// SessionRemovedPayload is the payload for session_removed events.
type SessionRemovedPayload struct {
	SessionID string `json:"session_id"`
}

// SessionStatusChangedPayload is the payload for session_status_changed events.
type SessionStatusChangedPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// SessionOutputPayload is the payload for session_output events.
type SessionOutputPayload struct {
	SessionID string `json:"session_id"`
	Line      string `json:"line"`
}

// SessionMembershipPayload is the payload for session_joined and
// session_left events.
type SessionMembershipPayload struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
}

// PipePayload is the payload for pipe_attached and pipe_detached events.
type PipePayload struct {
	SessionID string `json:"session_id"`
	TmuxPane  string `json:"tmuxPane"`
}

// StateFileChangedPayload is the payload for state_file_changed events.
type StateFileChangedPayload struct {
	Path string `json:"path"`
}

// HeartbeatPayload is the payload for heartbeat events. Heartbeats are
// sent periodically so clients can detect connection issues at the
// application level, beyond WebSocket ping/pong frames.
type HeartbeatPayload struct {
	ServerTime    string `json:"server_time"`
	Sequence      int64  `json:"sequence"`
	SessionCount  int    `json:"session_count"`
	ActivePipes   int    `json:"active_pipes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSessionCreatedEvent creates a new session_created event.
func NewSessionCreatedEvent(sessionID, name, tmuxSession, tmuxPane, projectPath, mode string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionCreated, sessionID, SessionCreatedPayload{
		SessionID:   sessionID,
		Name:        name,
		TmuxSession: tmuxSession,
		TmuxPane:    tmuxPane,
		ProjectPath: projectPath,
		Mode:        mode,
	})
}

// NewSessionRemovedEvent creates a new session_removed event.
func NewSessionRemovedEvent(sessionID string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionRemoved, sessionID, SessionRemovedPayload{
		SessionID: sessionID,
	})
}

// NewSessionStatusChangedEvent creates a new session_status_changed event.
func NewSessionStatusChangedEvent(sessionID, status string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionStatusChanged, sessionID, SessionStatusChangedPayload{
		SessionID: sessionID,
		Status:    status,
	})
}

// NewSessionOutputEvent creates a new session_output event.
func NewSessionOutputEvent(sessionID, line string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionOutput, sessionID, SessionOutputPayload{
		SessionID: sessionID,
		Line:      line,
	})
}

// NewSessionJoinedEvent creates a new session_joined event.
func NewSessionJoinedEvent(sessionID, clientID string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionJoined, sessionID, SessionMembershipPayload{
		SessionID: sessionID,
		ClientID:  clientID,
	})
}

// NewSessionLeftEvent creates a new session_left event.
func NewSessionLeftEvent(sessionID, clientID string) *BaseEvent {
	return NewSessionEvent(EventTypeSessionLeft, sessionID, SessionMembershipPayload{
		SessionID: sessionID,
		ClientID:  clientID,
	})
}

// NewPipeAttachedEvent creates a new pipe_attached event.
func NewPipeAttachedEvent(sessionID, tmuxPane string) *BaseEvent {
	return NewSessionEvent(EventTypePipeAttached, sessionID, PipePayload{
		SessionID: sessionID,
		TmuxPane:  tmuxPane,
	})
}

// NewPipeDetachedEvent creates a new pipe_detached event.
func NewPipeDetachedEvent(sessionID, tmuxPane string) *BaseEvent {
	return NewSessionEvent(EventTypePipeDetached, sessionID, PipePayload{
		SessionID: sessionID,
		TmuxPane:  tmuxPane,
	})
}

// NewStateFileChangedEvent creates a new state_file_changed event.
func NewStateFileChangedEvent(path string) *BaseEvent {
	return NewEvent(EventTypeStateFileChanged, StateFileChangedPayload{
		Path: path,
	})
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(seq int64, sessionCount, activePipes int, uptimeSeconds int64) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		ServerTime:    nowRFC3339(),
		Sequence:      seq,
		SessionCount:  sessionCount,
		ActivePipes:   activePipes,
		UptimeSeconds: uptimeSeconds,
	})
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(code, message string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
