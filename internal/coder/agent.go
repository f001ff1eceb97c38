// Package coder assembles the coding agent: the system prompt plus the
// three sandbox tools, bound to one run's session, shared state, and
// durable-step runner.
package coder

import (
	"fmt"

	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/prompts"
	"github.com/ChamsBouzaiene/forge/internal/sandbox"
	"github.com/ChamsBouzaiene/forge/internal/step"
)

// Config holds what the coding agent needs beyond its run-scoped
// collaborators.
type Config struct {
	LLM             engine.LLMClient
	Model           string
	MaxOutputTokens int
}

// NewAgent builds the coding agent for one run. Its tools mutate the given
// state as a side effect of tool calls, and every side effect executes
// through the step runner so retries are replay-safe.
func NewAgent(cfg Config, session sandbox.Session, state *engine.AgentState, steps step.Runner, runID string) (*engine.Agent, error) {
	prompt, err := prompts.DefaultRegistry().GetLatest("coding")
	if err != nil {
		return nil, fmt.Errorf("failed to load coding prompt: %w", err)
	}

	deps := &toolDeps{
		session: session,
		state:   state,
		steps:   steps,
		runID:   runID,
	}

	tools := engine.ToolRegistry{}
	for _, t := range []engine.Tool{
		newTerminalTool(deps),
		newWriteFilesTool(deps),
		newReadFilesTool(deps),
	} {
		tools[t.Name] = t
	}

	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = 8192
	}

	return &engine.Agent{
		Name:         "code-agent",
		Description:  "An expert coding agent that builds app fragments in an ephemeral sandbox",
		SystemPrompt: prompt.Content,
		Model:        cfg.Model,
		LLM:          cfg.LLM,
		Tools:        tools,
		Options: engine.ChatOptions{
			MaxOutputTokens: maxOutputTokens,
		},
	}, nil
}
