// Package sandbox provides ephemeral, isolated execution environments for
// agent runs. Each run gets its own session: a container with a dedicated
// workspace, command execution, file I/O, a wall-clock time-to-live, and a
// resolvable host address for the dev-server port.
package sandbox

import (
	"context"
	"time"
)

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// StreamFunc receives incremental output chunks while a command runs.
type StreamFunc func(chunk string)

// Session is one ephemeral compute/filesystem environment, keyed by an
// opaque identifier. Sessions are never shared across runs.
type Session interface {
	// ID returns the opaque session identifier.
	ID() string

	// RunCommand executes a shell command in the session, streaming stdout
	// and stderr chunks to the optional callbacks and capturing both
	// streams. A non-zero exit code is reported through the error along
	// with the captured Result, so callers never lose partial output.
	RunCommand(ctx context.Context, cmd string, onStdout, onStderr StreamFunc) (Result, error)

	// WriteFile writes content to path inside the session workspace,
	// creating parent directories as needed.
	WriteFile(ctx context.Context, path, content string) error

	// ReadFile returns the current content of path inside the session
	// workspace.
	ReadFile(ctx context.Context, path string) (string, error)

	// SetTimeout arms (or re-arms) the session's wall-clock TTL. When it
	// expires the environment is torn down; subsequent calls fail.
	SetTimeout(d time.Duration)

	// Host resolves the externally reachable address for a port exposed by
	// the session, e.g. the dev server.
	Host(ctx context.Context, port int) (string, error)

	// WorkspaceDir returns the host path of the session workspace.
	WorkspaceDir() string

	// Close tears the environment down. Safe to call after TTL expiry.
	Close(ctx context.Context) error
}

// Manager provisions sessions from a named template.
type Manager interface {
	Create(ctx context.Context, template string) (Session, error)
}
