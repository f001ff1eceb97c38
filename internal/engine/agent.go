package engine

import (
	"context"
	"fmt"
)

// Agent is one LLM-backed participant in a network. Its tools close over
// the run's sandbox session and shared state, so invoking them mutates the
// AgentState as a side effect of the turn.
type Agent struct {
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	LLM          LLMClient
	Tools        ToolRegistry
	Options      ChatOptions
}

// TurnResult carries what one agent turn produced.
type TurnResult struct {
	// AssistantText is the final assistant-authored text of the turn.
	// Empty when the turn was a pure tool call with no text output.
	AssistantText string
	// ToolCalls counts how many tool invocations the turn requested.
	ToolCalls int
	Usage     Usage
}

// Turn runs one invocation of the agent: a single chat completion against
// the full history, followed by sequential execution of every requested
// tool call. Tool results are appended to history so the next turn sees
// them. The turn always completes fully: every requested tool call executes
// before the caller gets to make a termination decision.
func (a *Agent) Turn(ctx context.Context, history *[]ChatMessage, hooks Hooks) (TurnResult, error) {
	msgs := make([]ChatMessage, 0, len(*history)+1)
	msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: a.SystemPrompt})
	msgs = append(msgs, *history...)

	schemas := a.Tools.Schemas()
	hooks.OnBeforeLLM(ctx, msgs, schemas)

	resp, err := a.LLM.Chat(ctx, a.Model, msgs, schemas, a.Options)
	if err != nil {
		return TurnResult{}, fmt.Errorf("agent %s: chat call failed: %w", a.Name, err)
	}
	hooks.OnAfterLLM(ctx, resp)

	assistantMsg := resp.Assistant
	assistantMsg.Role = RoleAssistant
	assistantMsg.ToolCalls = resp.ToolCalls
	*history = append(*history, assistantMsg)

	// Tool calls run strictly sequentially: the router's next decision
	// depends on state mutations being fully applied, and no two tool
	// invocations for the same run may be assumed concurrent.
	for _, call := range resp.ToolCalls {
		hooks.OnToolCall(ctx, call)
		result := a.invokeTool(ctx, call)
		toolCallID := call.ID
		if toolCallID == "" {
			toolCallID = call.Name
		}
		*history = append(*history, ChatMessage{Role: RoleTool, Name: toolCallID, Content: result})
		hooks.OnToolResult(ctx, call, result)
	}

	return TurnResult{
		AssistantText: assistantMsg.Content,
		ToolCalls:     len(resp.ToolCalls),
		Usage:         resp.Usage,
	}, nil
}

// invokeTool executes one tool call. Failures degrade to a descriptive
// string payload the agent can read and react to; they never propagate as
// faults out of the turn.
func (a *Agent) invokeTool(ctx context.Context, call ToolCall) string {
	t, ok := a.Tools[call.Name]
	if !ok {
		return fmt.Sprintf("Error: tool not found: %s (available tools: %v)", call.Name, a.Tools.Names())
	}
	if err := t.ValidateArgs(call.Args); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	result, err := t.Fn(ctx, call.Args)
	if err != nil {
		return fmt.Sprintf("Error: tool %s failed: %v", call.Name, err)
	}
	return result
}
