package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/hub"
	"github.com/LupusDei/adjutant-sub008/internal/session"
	"github.com/gorilla/websocket"
)

type fixedPipes struct{ n int }

func (f fixedPipes) ActivePipeCount() int { return f.n }

func newTestServer(t *testing.T) (*Server, *session.Registry, *hub.Hub) {
	t.Helper()
	registry := session.NewRegistry(filepath.Join(t.TempDir(), "sessions.json"), 0)
	h := hub.New()
	if err := h.Start(); err != nil {
		t.Fatalf("hub.Start() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })

	return NewServer("127.0.0.1", 0, registry, fixedPipes{}, h), registry, h
}

// dial connects a test websocket client to the server's handler.
func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.BaseEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var ev events.BaseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	return ev
}

func TestNewServer(t *testing.T) {
	s, _, _ := newTestServer(t)

	if s.addr != "127.0.0.1:0" {
		t.Errorf("addr = %q, want 127.0.0.1:0", s.addr)
	}
	if s.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", s.ClientCount())
	}
}

func TestServer_StartStop(t *testing.T) {
	s, _, _ := newTestServer(t)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestServer_WatchReplaysBuffer(t *testing.T) {
	s, registry, _ := newTestServer(t)

	info, err := registry.Create(session.Spec{
		Name:        "builder",
		TmuxSession: "agents",
		ProjectPath: "/p",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	registry.AppendOutput(info.ID, "replayed one")
	registry.AppendOutput(info.ID, "replayed two")

	conn := dial(t, s)
	waitForClients(t, s, 1)

	msg, _ := json.Marshal(map[string]string{"command": "watch", "session_id": info.ID})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	first := readEvent(t, conn)
	if first.Type() != events.EventTypeSessionOutput {
		t.Fatalf("first event = %q, want session_output", first.Type())
	}
	second := readEvent(t, conn)
	if second.Type() != events.EventTypeSessionOutput {
		t.Fatalf("second event = %q, want session_output", second.Type())
	}

	// Watching registered the client in the session's viewer set
	deadline := time.Now().Add(time.Second)
	for {
		got, _ := registry.Get(info.ID)
		if len(got.Clients) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Clients = %v, want one member", got.Clients)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_WatchUnknownSession(t *testing.T) {
	s, _, _ := newTestServer(t)
	conn := dial(t, s)
	waitForClients(t, s, 1)

	msg, _ := json.Marshal(map[string]string{"command": "watch", "session_id": "nope"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Type() != events.EventTypeError {
		t.Errorf("event = %q, want error", ev.Type())
	}
}

func TestServer_DisconnectRemovesMembership(t *testing.T) {
	s, registry, _ := newTestServer(t)

	info, err := registry.Create(session.Spec{
		Name:        "builder",
		TmuxSession: "agents",
		ProjectPath: "/p",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	conn := dial(t, s)
	waitForClients(t, s, 1)

	msg, _ := json.Marshal(map[string]string{"command": "watch", "session_id": info.ID})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		got, _ := registry.Get(info.ID)
		if len(got.Clients) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered as viewer")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for {
		got, _ := registry.Get(info.ID)
		if len(got.Clients) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Clients = %v after disconnect, want empty", got.Clients)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_BroadcastEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	// Broadcast to empty server should not panic
	s.Broadcast([]byte("test message"))
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
