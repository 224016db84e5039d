package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry is the authoritative in-memory map of managed sessions.
//
// Operations referencing an unknown session id return sentinel values
// (false, zero Info) rather than errors, so callers can branch on
// "did not apply" without error handling. One instance per process,
// wired in by the app; there is no package-level singleton.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	statePath string
	bufferCap int
}

// NewRegistry creates a registry persisting to statePath. bufferCap
// bounds each session's output buffer; values <= 0 use DefaultBufferCap.
func NewRegistry(statePath string, bufferCap int) *Registry {
	if bufferCap <= 0 {
		bufferCap = DefaultBufferCap
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		statePath: statePath,
		bufferCap: bufferCap,
	}
}

// Create registers a new session. Name, TmuxSession and ProjectPath are
// required; TmuxPane defaults to "{TmuxSession}:0.0", Mode to
// standalone, WorkspaceType to primary. Unknown mode or workspaceType
// values are rejected. The new session starts idle.
func (r *Registry) Create(spec Spec) (Info, error) {
	switch {
	case spec.Name == "":
		return Info{}, fmt.Errorf("%w: name", domain.ErrMissingField)
	case spec.TmuxSession == "":
		return Info{}, fmt.Errorf("%w: tmuxSession", domain.ErrMissingField)
	case spec.ProjectPath == "":
		return Info{}, fmt.Errorf("%w: projectPath", domain.ErrMissingField)
	}

	mode, ok := ParseMode(string(spec.Mode))
	if !ok {
		return Info{}, fmt.Errorf("%w: mode %q", domain.ErrInvalidField, spec.Mode)
	}
	spec.Mode = mode

	wsType, ok := ParseWorkspaceType(string(spec.WorkspaceType))
	if !ok {
		return Info{}, fmt.Errorf("%w: workspaceType %q", domain.ErrInvalidField, spec.WorkspaceType)
	}
	spec.WorkspaceType = wsType

	s := newSession(uuid.New().String(), spec, r.bufferCap)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.Info().
		Str("session_id", s.ID).
		Str("name", s.Name).
		Str("pane", s.TmuxPane).
		Str("mode", string(s.Mode)).
		Msg("session created")

	return s.info(), nil
}

// Get returns a session by id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Info{}, false
	}
	return s.info(), true
}

// All returns every session. Order is not meaningful.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.info())
	}
	return out
}

// FindByTmuxSession returns the first session bound to the given tmux
// session name.
func (r *Registry) FindByTmuxSession(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.TmuxSession == name {
			return s.info(), true
		}
	}
	return Info{}, false
}

// FindByName returns all sessions with the given human label.
func (r *Registry) FindByName(name string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Info
	for _, s := range r.sessions {
		if s.Name == name {
			out = append(out, s.info())
		}
	}
	return out
}

// UpdateStatus sets a session's status and bumps its activity
// timestamp. Returns false for an unknown id, leaving all state
// untouched.
func (r *Registry) UpdateStatus(id string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Status = status
	s.LastActivity = time.Now().UTC()
	return true
}

// AddClient records a client as viewing the session. Adding a client
// that is already present is a no-op returning true.
func (r *Registry) AddClient(id, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.connectedClients[clientID] = true
	return true
}

// RemoveClient removes a client from the session's viewer set. Returns
// false when the session is unknown, and also when the client was not
// a member: nothing was removed either way.
func (r *Registry) RemoveClient(id, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if !s.connectedClients[clientID] {
		return false
	}
	delete(s.connectedClients, clientID)
	return true
}

// RemoveClientEverywhere drops the client from every session's viewer
// set and returns the ids of sessions it was removed from. Used when a
// dashboard connection goes away.
func (r *Registry) RemoveClientEverywhere(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for id, s := range r.sessions {
		if s.connectedClients[clientID] {
			delete(s.connectedClients, clientID)
			left = append(left, id)
		}
	}
	return left
}

// AppendOutput appends a line to the session's output buffer, evicting
// the oldest line at capacity.
func (r *Registry) AppendOutput(id, line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.outputBuffer.Append(line)
	return true
}

// GetOutputBuffer returns an independent copy of the session's buffered
// output, oldest-first.
func (r *Registry) GetOutputBuffer(id string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.outputBuffer.Snapshot(), true
}

// ClearOutputBuffer empties the session's output buffer.
func (r *Registry) ClearOutputBuffer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.outputBuffer.Clear()
	return true
}

// Remove deletes the session entirely.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)

	log.Info().Str("session_id", id).Msg("session removed")
	return true
}

// Size returns the current session count.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// setPipeActive is used by the Connector to keep the session's pipe
// flag in sync with its active-pipe set.
func (r *Registry) setPipeActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.pipeActive = active
	}
}

// Save serializes all sessions' non-transient fields to the state file,
// creating parent directories as needed. The write is atomic: a temp
// file in the same directory is renamed over the target, so a crash
// mid-write never leaves a truncated state file. Unlike Load, Save
// propagates I/O errors; the caller should know persistence is broken.
func (r *Registry) Save() error {
	r.mu.RLock()
	records := make([]record, 0, len(r.sessions))
	for _, s := range r.sessions {
		records = append(records, s.toRecord())
	}
	r.mu.RUnlock()

	dir := filepath.Dir(r.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, r.statePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}

	log.Debug().Int("count", len(records)).Str("path", r.statePath).Msg("sessions saved")
	return nil
}

// Load reads the state file and reconstitutes sessions with transient
// fields reset: every loaded session is offline with no clients, an
// empty buffer, and no pipe. Returns the number of sessions loaded.
// A missing file is a normal first run and yields 0; malformed content
// yields 0 with a warning. Load never fails the caller.
func (r *Registry) Load() int {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", r.statePath).Msg("failed to read state file")
		}
		return 0
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("path", r.statePath).Msg("state file is corrupt, starting empty")
		return 0
	}

	r.mu.Lock()
	for _, rec := range records {
		r.sessions[rec.ID] = fromRecord(rec, r.bufferCap)
	}
	r.mu.Unlock()

	log.Info().Int("count", len(records)).Str("path", r.statePath).Msg("sessions loaded")
	return len(records)
}

// StatePath returns the path of the persisted state file.
func (r *Registry) StatePath() string {
	return r.statePath
}
