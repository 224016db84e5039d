// Package http implements the REST API server for adjutant.
package http

import "github.com/LupusDei/adjutant-sub008/internal/session"

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CreateSessionRequest is the request body for registering a session.
type CreateSessionRequest struct {
	Name          string `json:"name"`
	TmuxSession   string `json:"tmuxSession"`
	TmuxPane      string `json:"tmuxPane,omitempty"`
	ProjectPath   string `json:"projectPath"`
	Mode          string `json:"mode,omitempty"`
	WorkspaceType string `json:"workspaceType,omitempty"`
}

// UpdateStatusRequest is the request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// SessionsResponse is the list of registered sessions.
type SessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
	Count    int            `json:"count"`
}

// OutputResponse is a session's buffered output.
type OutputResponse struct {
	SessionID string   `json:"sessionId"`
	Lines     []string `json:"lines"`
	Count     int      `json:"count"`
}

// CaptureResponse is a one-shot pane snapshot.
type CaptureResponse struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// PipeResponse reports the pipe state after an attach or detach.
type PipeResponse struct {
	SessionID string `json:"sessionId"`
	Attached  bool   `json:"attached"`
}

// ErrorResponse is the error body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
