package coder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/sandbox"
	"github.com/ChamsBouzaiene/forge/internal/step"
)

const terminalOutputLimit = 16000

// toolDeps bundles what every tool invocation closes over: the run's
// sandbox session, the shared state, and the durable-step runner that
// memoizes each side effect.
type toolDeps struct {
	session sandbox.Session
	state   *engine.AgentState
	steps   step.Runner
	runID   string

	// seq numbers tool invocations within the run. Replays execute calls
	// in the same order, so sequence-based step IDs line up with the
	// memoized results of the original execution.
	seq atomic.Int64
}

func (d *toolDeps) stepID(tool string) string {
	return fmt.Sprintf("%s-%d", tool, d.seq.Add(1))
}

// fileEntry is the wire shape for file arguments and results.
type fileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// newTerminalTool runs a shell command in the sandbox. Command failures
// degrade to a composite string carrying the error plus both captured
// streams, so the agent sees partial output and can react.
func newTerminalTool(d *toolDeps) engine.Tool {
	return engine.Tool{
		Name:        "terminal",
		Description: "Run a shell command in the sandbox. Returns the command's stdout, or a description of the failure including captured output.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"command": {"type": "string", "description": "The shell command to execute."}
			},
			"required": ["command"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return "Error: command is required", nil
			}

			return d.steps.Do(ctx, d.runID, d.stepID("terminal"), func(ctx context.Context) (string, error) {
				var stdoutB, stderrB strings.Builder
				result, err := d.session.RunCommand(ctx, command,
					func(chunk string) { stdoutB.WriteString(chunk) },
					func(chunk string) { stderrB.WriteString(chunk) },
				)
				stdout := pickOutput(result.Stdout, stdoutB.String())
				stderr := pickOutput(result.Stderr, stderrB.String())
				if err != nil {
					// The failure string is the tool's result, not an
					// error: the agent reads it and reacts.
					return truncateOutput(fmt.Sprintf(
						"Command failed: %v | stdout: %s | stderr: %s",
						err, stdout, stderr)), nil
				}
				return truncateOutput(stdout), nil
			})
		},
	}
}

// newWriteFilesTool writes entries to the sandbox and merges them into the
// shared state's file mapping, last write wins. The sandbox writes run
// inside a durable step; the in-memory merge re-applies from the step's
// payload so a replayed run rebuilds identical state without repeating the
// writes.
func newWriteFilesTool(d *toolDeps) engine.Tool {
	return engine.Tool{
		Name:        "create_or_update_files",
		Description: "Create or update files in the sandbox. Paths are relative to the workspace root.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"files": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"path": {"type": "string"},
							"content": {"type": "string"}
						},
						"required": ["path", "content"]
					}
				}
			},
			"required": ["files"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			entries, err := parseFileEntries(args["files"])
			if err != nil {
				return fmt.Sprintf("Error: %v", err), nil
			}

			payload, err := d.steps.Do(ctx, d.runID, d.stepID("create_or_update_files"), func(ctx context.Context) (string, error) {
				for _, e := range entries {
					if err := d.session.WriteFile(ctx, e.Path, e.Content); err != nil {
						return fmt.Sprintf("Error: failed to write %s: %v", e.Path, err), nil
					}
				}
				data, err := json.Marshal(entries)
				if err != nil {
					return "", fmt.Errorf("failed to marshal written entries: %w", err)
				}
				return string(data), nil
			})
			if err != nil {
				return "", err
			}
			if strings.HasPrefix(payload, "Error:") {
				return payload, nil
			}

			var written []fileEntry
			if err := json.Unmarshal([]byte(payload), &written); err != nil {
				return "", fmt.Errorf("failed to decode written entries: %w", err)
			}
			merge := make(map[string]string, len(written))
			for _, e := range written {
				merge[e.Path] = e.Content
			}
			d.state.MergeFiles(merge)

			updated, err := json.Marshal(d.state.Files())
			if err != nil {
				return "", fmt.Errorf("failed to marshal file mapping: %w", err)
			}
			return string(updated), nil
		},
	}
}

// newReadFilesTool reads current sandbox contents (not the accumulated
// state), so the agent can inspect files its commands produced or modified.
func newReadFilesTool(d *toolDeps) engine.Tool {
	return engine.Tool{
		Name:        "read_files",
		Description: "Read files from the sandbox. Returns a JSON list of {path, content}.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"files": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Paths to read, relative to the workspace root."
				}
			},
			"required": ["files"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			paths, err := parsePaths(args["files"])
			if err != nil {
				return fmt.Sprintf("Error: %v", err), nil
			}

			return d.steps.Do(ctx, d.runID, d.stepID("read_files"), func(ctx context.Context) (string, error) {
				contents := make([]fileEntry, 0, len(paths))
				for _, p := range paths {
					content, err := d.session.ReadFile(ctx, p)
					if err != nil {
						return fmt.Sprintf("Error: failed to read %s: %v", p, err), nil
					}
					contents = append(contents, fileEntry{Path: p, Content: content})
				}
				data, err := json.Marshal(contents)
				if err != nil {
					return "", fmt.Errorf("failed to marshal file contents: %w", err)
				}
				return string(data), nil
			})
		},
	}
}

func parseFileEntries(raw any) ([]fileEntry, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("files must be an array of {path, content} objects")
	}
	entries := make([]fileEntry, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("files[%d] must be an object", i)
		}
		path, _ := obj["path"].(string)
		content, _ := obj["content"].(string)
		if path == "" {
			return nil, fmt.Errorf("files[%d] is missing a path", i)
		}
		entries = append(entries, fileEntry{Path: path, Content: content})
	}
	return entries, nil
}

func parsePaths(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("files must be an array of paths")
	}
	paths := make([]string, 0, len(items))
	for i, item := range items {
		p, ok := item.(string)
		if !ok || p == "" {
			return nil, fmt.Errorf("files[%d] must be a non-empty string", i)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func pickOutput(captured, streamed string) string {
	if captured != "" {
		return captured
	}
	return streamed
}

func truncateOutput(s string) string {
	if len(s) <= terminalOutputLimit {
		return s
	}
	return s[:terminalOutputLimit] + "\n... (output truncated)"
}
