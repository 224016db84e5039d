// Package tmux wraps the tmux commands adjutant uses to observe agent
// panes: pipe-pane for live output capture and capture-pane for
// one-shot snapshots.
package tmux

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds each tmux command invocation. tmux commands are
// local and fast; a hung tmux server is treated as a failure.
const DefaultTimeout = 5 * time.Second

// Runner executes a tmux command and returns its output. Injectable so
// the connector can be tested without a tmux server.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs tmux via os/exec.
type ExecRunner struct {
	Bin     string
	Timeout time.Duration
}

// NewExecRunner creates a runner for the given tmux binary. An empty
// bin falls back to "tmux" resolved from PATH.
func NewExecRunner(bin string, timeout time.Duration) *ExecRunner {
	if bin == "" {
		bin = "tmux"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Bin: bin, Timeout: timeout}
}

// Run executes a single tmux command, bounded by the runner's timeout.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Client issues the pane-level tmux operations the connector needs.
type Client struct {
	runner Runner
}

// NewClient creates a tmux client on top of a runner.
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// PipePane starts piping a pane's output to the given shell command.
// The -o flag makes the call idempotent at the tmux level: it only
// toggles the pipe on when no pipe is currently open for the pane.
func (c *Client) PipePane(ctx context.Context, pane, dest string) error {
	_, stderr, err := c.runner.Run(ctx, "pipe-pane", "-o", "-t", pane, dest)
	if err != nil {
		return domain.NewTmuxError("pipe-pane", pane, strings.TrimSpace(stderr), err)
	}
	return nil
}

// StopPipe stops piping a pane's output. pipe-pane with no command
// closes any open pipe for the pane.
func (c *Client) StopPipe(ctx context.Context, pane string) error {
	_, stderr, err := c.runner.Run(ctx, "pipe-pane", "-t", pane)
	if err != nil {
		return domain.NewTmuxError("pipe-pane", pane, strings.TrimSpace(stderr), err)
	}
	return nil
}

// CapturePane returns the pane's currently visible text, including
// embedded newlines, exactly as tmux reports it.
func (c *Client) CapturePane(ctx context.Context, pane string) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, "capture-pane", "-t", pane, "-p")
	if err != nil {
		return "", domain.NewTmuxError("capture-pane", pane, strings.TrimSpace(stderr), err)
	}
	return stdout, nil
}

// DefaultPane returns the default pane target for a tmux session:
// window 0, pane 0.
func DefaultPane(session string) string {
	return session + ":0.0"
}

// FindBinary locates the tmux binary. GUI-launched processes on macOS
// don't inherit the shell PATH, so common Homebrew locations are
// probed before falling back to a bare "tmux".
func FindBinary() string {
	if path, err := exec.LookPath("tmux"); err == nil {
		return path
	}

	for _, p := range []string{
		"/opt/homebrew/bin/tmux",
		"/usr/local/bin/tmux",
		"/usr/bin/tmux",
	} {
		if _, err := exec.LookPath(p); err == nil {
			return p
		}
	}

	log.Warn().Msg("tmux binary not found in PATH, falling back to \"tmux\"")
	return "tmux"
}
