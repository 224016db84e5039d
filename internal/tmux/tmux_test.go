package tmux

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner records invocations and returns canned results.
type fakeRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, string, error) {
	f.calls = append(f.calls, args)
	return f.stdout, f.stderr, f.err
}

func TestClient_PipePane(t *testing.T) {
	runner := &fakeRunner{}
	c := NewClient(runner)

	if err := c.PipePane(context.Background(), "agents:0.0", "cat >> /tmp/out.log"); err != nil {
		t.Fatalf("PipePane() error = %v", err)
	}

	want := "pipe-pane -o -t agents:0.0 cat >> /tmp/out.log"
	if got := strings.Join(runner.calls[0], " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestClient_StopPipe(t *testing.T) {
	runner := &fakeRunner{}
	c := NewClient(runner)

	if err := c.StopPipe(context.Background(), "agents:0.0"); err != nil {
		t.Fatalf("StopPipe() error = %v", err)
	}

	want := "pipe-pane -t agents:0.0"
	if got := strings.Join(runner.calls[0], " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestClient_CapturePane(t *testing.T) {
	runner := &fakeRunner{stdout: "line one\nline two\n"}
	c := NewClient(runner)

	out, err := c.CapturePane(context.Background(), "agents:1.2")
	if err != nil {
		t.Fatalf("CapturePane() error = %v", err)
	}
	if out != "line one\nline two\n" {
		t.Errorf("output = %q, want verbatim pane text", out)
	}

	want := "capture-pane -t agents:1.2 -p"
	if got := strings.Join(runner.calls[0], " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestClient_CommandFailure(t *testing.T) {
	runner := &fakeRunner{stderr: "can't find pane: nope\n", err: errors.New("exit status 1")}
	c := NewClient(runner)

	if err := c.PipePane(context.Background(), "nope", "cat"); err == nil {
		t.Error("PipePane() error = nil, want tmux error")
	}
	if _, err := c.CapturePane(context.Background(), "nope"); err == nil {
		t.Error("CapturePane() error = nil, want tmux error")
	}
	if err := c.StopPipe(context.Background(), "nope"); err == nil {
		t.Error("StopPipe() error = nil, want tmux error")
	}
}

func TestDefaultPane(t *testing.T) {
	if got := DefaultPane("swarm"); got != "swarm:0.0" {
		t.Errorf("DefaultPane(swarm) = %q, want swarm:0.0", got)
	}
}
