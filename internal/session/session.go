// Package session implements adjutant's session management core: the
// registry of supervised agent sessions, the per-session output buffer,
// and the connector that pipes tmux pane output into the registry.
package session

import (
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/tmux"
)

// Status represents the current state of a managed session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusBlocked Status = "blocked"
	StatusStuck   Status = "stuck"
	StatusOffline Status = "offline"
)

// ParseStatus maps a wire value onto a known Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusIdle, StatusWorking, StatusBlocked, StatusStuck, StatusOffline:
		return Status(s), true
	}
	return "", false
}

// Mode describes how the agent in a session is being driven.
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeSwarm      Mode = "swarm"
)

// ParseMode maps a wire value onto a known Mode. The empty string
// resolves to the standalone default.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "":
		return ModeStandalone, true
	case ModeStandalone, ModeSwarm:
		return Mode(s), true
	}
	return "", false
}

// WorkspaceType describes the kind of checkout a session operates in.
type WorkspaceType string

const (
	WorkspacePrimary  WorkspaceType = "primary"
	WorkspaceWorktree WorkspaceType = "worktree"
)

// ParseWorkspaceType maps a wire value onto a known WorkspaceType. The
// empty string resolves to the primary default.
func ParseWorkspaceType(s string) (WorkspaceType, bool) {
	switch WorkspaceType(s) {
	case "":
		return WorkspacePrimary, true
	case WorkspacePrimary, WorkspaceWorktree:
		return WorkspaceType(s), true
	}
	return "", false
}

// Session is a supervised agent session bound to a tmux pane.
//
// Fields are guarded by the owning Registry's lock; callers outside
// this package only see copies via Snapshot.
type Session struct {
	ID            string
	Name          string
	TmuxSession   string
	TmuxPane      string
	ProjectPath   string
	Mode          Mode
	WorkspaceType WorkspaceType
	Status        Status
	CreatedAt     time.Time
	LastActivity  time.Time

	// Runtime-only state, never persisted
	connectedClients map[string]bool
	outputBuffer     *ringBuffer
	pipeActive       bool
}

// Spec describes a session to create. Name, TmuxSession and ProjectPath
// are required; the rest defaults.
type Spec struct {
	Name          string
	TmuxSession   string
	TmuxPane      string
	ProjectPath   string
	Mode          Mode
	WorkspaceType WorkspaceType
}

// Info is a serializable view of a session for API and event payloads.
type Info struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	TmuxSession   string        `json:"tmuxSession"`
	TmuxPane      string        `json:"tmuxPane"`
	ProjectPath   string        `json:"projectPath"`
	Mode          Mode          `json:"mode"`
	WorkspaceType WorkspaceType `json:"workspaceType"`
	Status        Status        `json:"status"`
	Clients       []string      `json:"connectedClients"`
	PipeActive    bool          `json:"pipeActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastActivity  time.Time     `json:"lastActivity"`
}

// record is the persisted on-disk form of a session. Transient fields
// (status, clients, buffer, pipe state) are deliberately absent.
type record struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	TmuxSession   string        `json:"tmuxSession"`
	TmuxPane      string        `json:"tmuxPane"`
	ProjectPath   string        `json:"projectPath"`
	Mode          Mode          `json:"mode"`
	WorkspaceType WorkspaceType `json:"workspaceType"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastActivity  time.Time     `json:"lastActivity"`
}

// newSession builds a session from a spec. The caller has already
// validated required fields and resolved the mode and workspace type.
func newSession(id string, spec Spec, bufferCap int) *Session {
	pane := spec.TmuxPane
	if pane == "" {
		pane = tmux.DefaultPane(spec.TmuxSession)
	}

	now := time.Now().UTC()
	return &Session{
		ID:               id,
		Name:             spec.Name,
		TmuxSession:      spec.TmuxSession,
		TmuxPane:         pane,
		ProjectPath:      spec.ProjectPath,
		Mode:             spec.Mode,
		WorkspaceType:    spec.WorkspaceType,
		Status:           StatusIdle,
		CreatedAt:        now,
		LastActivity:     now,
		connectedClients: make(map[string]bool),
		outputBuffer:     newRingBuffer(bufferCap),
	}
}

// fromRecord reconstitutes a persisted session. Transient state is
// reset: a reloaded session is offline with no clients, no buffered
// output, and no pipe, whatever was true when it was saved.
func fromRecord(rec record, bufferCap int) *Session {
	return &Session{
		ID:               rec.ID,
		Name:             rec.Name,
		TmuxSession:      rec.TmuxSession,
		TmuxPane:         rec.TmuxPane,
		ProjectPath:      rec.ProjectPath,
		Mode:             rec.Mode,
		WorkspaceType:    rec.WorkspaceType,
		Status:           StatusOffline,
		CreatedAt:        rec.CreatedAt,
		LastActivity:     rec.LastActivity,
		connectedClients: make(map[string]bool),
		outputBuffer:     newRingBuffer(bufferCap),
	}
}

// toRecord extracts the persisted fields.
func (s *Session) toRecord() record {
	return record{
		ID:            s.ID,
		Name:          s.Name,
		TmuxSession:   s.TmuxSession,
		TmuxPane:      s.TmuxPane,
		ProjectPath:   s.ProjectPath,
		Mode:          s.Mode,
		WorkspaceType: s.WorkspaceType,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
	}
}

// info builds a serializable view. Caller holds the registry lock.
func (s *Session) info() Info {
	clients := make([]string, 0, len(s.connectedClients))
	for id := range s.connectedClients {
		clients = append(clients, id)
	}
	return Info{
		ID:            s.ID,
		Name:          s.Name,
		TmuxSession:   s.TmuxSession,
		TmuxPane:      s.TmuxPane,
		ProjectPath:   s.ProjectPath,
		Mode:          s.Mode,
		WorkspaceType: s.WorkspaceType,
		Status:        s.Status,
		Clients:       clients,
		PipeActive:    s.pipeActive,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
	}
}
