package coder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/sandbox"
	"github.com/ChamsBouzaiene/forge/internal/step"
)

// fakeSession is an in-memory sandbox.Session.
type fakeSession struct {
	files    map[string]string
	commands []string
	// failCommand makes RunCommand fail with canned output.
	failCommand bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{files: make(map[string]string)}
}

func (f *fakeSession) ID() string           { return "fake-session" }
func (f *fakeSession) WorkspaceDir() string { return "/tmp/fake" }

func (f *fakeSession) RunCommand(_ context.Context, cmd string, onStdout, onStderr sandbox.StreamFunc) (sandbox.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.failCommand {
		if onStdout != nil {
			onStdout("partial output")
		}
		if onStderr != nil {
			onStderr("npm ERR! missing script")
		}
		return sandbox.Result{Stdout: "partial output", Stderr: "npm ERR! missing script", Code: 1},
			fmt.Errorf("command exited with code 1")
	}
	if onStdout != nil {
		onStdout("ok\n")
	}
	return sandbox.Result{Stdout: "ok\n"}, nil
}

func (f *fakeSession) WriteFile(_ context.Context, path, content string) error {
	f.files[path] = content
	return nil
}

func (f *fakeSession) ReadFile(_ context.Context, path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (f *fakeSession) SetTimeout(time.Duration) {}

func (f *fakeSession) Host(_ context.Context, port int) (string, error) {
	return fmt.Sprintf("fake:%d", port), nil
}

func (f *fakeSession) Close(context.Context) error { return nil }

func newTestDeps(sess sandbox.Session) (*toolDeps, *engine.AgentState) {
	st := engine.NewAgentState()
	return &toolDeps{
		session: sess,
		state:   st,
		steps:   step.NewMemoryRunner(),
		runID:   "run-1",
	}, st
}

func runTool(t *testing.T, tool engine.Tool, args map[string]any) string {
	t.Helper()
	if err := tool.ValidateArgs(args); err != nil {
		t.Fatalf("ValidateArgs() error = %v", err)
	}
	result, err := tool.Fn(context.Background(), args)
	if err != nil {
		t.Fatalf("tool %s returned error = %v, tools must degrade failures to strings", tool.Name, err)
	}
	return result
}

func TestTerminalToolSuccess(t *testing.T) {
	sess := newFakeSession()
	deps, _ := newTestDeps(sess)
	tool := newTerminalTool(deps)

	result := runTool(t, tool, map[string]any{"command": "npm install --yes"})
	if result != "ok\n" {
		t.Errorf("result = %q, want stdout", result)
	}
	if len(sess.commands) != 1 || sess.commands[0] != "npm install --yes" {
		t.Errorf("commands = %v", sess.commands)
	}
}

func TestTerminalToolFailureKeepsBothStreams(t *testing.T) {
	sess := newFakeSession()
	sess.failCommand = true
	deps, _ := newTestDeps(sess)
	tool := newTerminalTool(deps)

	result := runTool(t, tool, map[string]any{"command": "npm run build"})
	if !strings.Contains(result, "Command failed") {
		t.Errorf("result = %q, want failure description", result)
	}
	// Partial output is never lost.
	if !strings.Contains(result, "partial output") || !strings.Contains(result, "npm ERR! missing script") {
		t.Errorf("result = %q, want both captured streams embedded", result)
	}
}

func TestWriteFilesToolMergesLastWriteWins(t *testing.T) {
	sess := newFakeSession()
	deps, st := newTestDeps(sess)
	tool := newWriteFilesTool(deps)

	runTool(t, tool, map[string]any{"files": []any{
		map[string]any{"path": "app.js", "content": "v1"},
		map[string]any{"path": "index.html", "content": "<html>"},
	}})
	result := runTool(t, tool, map[string]any{"files": []any{
		map[string]any{"path": "app.js", "content": "v2"},
	}})

	files := st.Files()
	if files["app.js"] != "v2" {
		t.Errorf("state[app.js] = %q, want last write", files["app.js"])
	}
	if files["index.html"] != "<html>" {
		t.Errorf("state[index.html] = %q, other paths must be preserved", files["index.html"])
	}
	if sess.files["app.js"] != "v2" {
		t.Errorf("sandbox[app.js] = %q", sess.files["app.js"])
	}

	// The tool reports the full updated mapping.
	var updated map[string]string
	if err := json.Unmarshal([]byte(result), &updated); err != nil {
		t.Fatalf("result is not a JSON mapping: %v", err)
	}
	if len(updated) != 2 {
		t.Errorf("updated mapping has %d entries, want 2", len(updated))
	}
}

func TestReadFilesToolRoundTrip(t *testing.T) {
	sess := newFakeSession()
	deps, _ := newTestDeps(sess)

	writeTool := newWriteFilesTool(deps)
	readTool := newReadFilesTool(deps)

	content := "export default function App() { return null }"
	runTool(t, writeTool, map[string]any{"files": []any{
		map[string]any{"path": "src/App.tsx", "content": content},
	}})

	result := runTool(t, readTool, map[string]any{"files": []any{"src/App.tsx"}})

	var entries []fileEntry
	if err := json.Unmarshal([]byte(result), &entries); err != nil {
		t.Fatalf("result is not a JSON list: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "src/App.tsx" || entries[0].Content != content {
		t.Errorf("round trip = %+v, want identical content back", entries)
	}
}

func TestReadFilesToolMissingFileDegradesToString(t *testing.T) {
	sess := newFakeSession()
	deps, _ := newTestDeps(sess)
	tool := newReadFilesTool(deps)

	result := runTool(t, tool, map[string]any{"files": []any{"nope.ts"}})
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("result = %q, want error string", result)
	}
}

func TestToolStepIDsAreSequenced(t *testing.T) {
	// A replayed run issues the same calls in the same order; sequence
	// based step IDs make the memoized results line up. Two identical
	// commands must still execute twice within one run.
	sess := newFakeSession()
	deps, _ := newTestDeps(sess)
	tool := newTerminalTool(deps)

	runTool(t, tool, map[string]any{"command": "npm test"})
	runTool(t, tool, map[string]any{"command": "npm test"})

	if len(sess.commands) != 2 {
		t.Errorf("commands executed %d times, want 2", len(sess.commands))
	}
}
