package engine

import (
	"context"
	"testing"
)

// scriptedLLM returns one canned response per call, repeating the last one
// once the script runs out.
type scriptedLLM struct {
	script []LLMResponse
	calls  int
}

func (s *scriptedLLM) Chat(_ context.Context, _ string, _ []ChatMessage, _ []ToolSchema, _ ChatOptions) (LLMResponse, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx], nil
}

func textResponse(content string) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant, Content: content},
		FinishReason: "stop",
	}
}

func newTestNetwork(llm LLMClient, tools ToolRegistry, maxIter int) (*Network, *AgentState) {
	agent := &Agent{
		Name:         "coder",
		SystemPrompt: "You write code.",
		Model:        "test-model",
		LLM:          llm,
		Tools:        tools,
	}
	n := NewNetwork(agent)
	n.MaxIterations = maxIter
	return n, NewAgentState()
}

func TestNetworkStopsAtIterationCap(t *testing.T) {
	llm := &scriptedLLM{script: []LLMResponse{textResponse("still going")}}
	n, st := newTestNetwork(llm, ToolRegistry{}, 3)

	res, err := n.Run(context.Background(), nil, st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Iterations != 3 {
		t.Errorf("Iterations = %d, want exactly the cap (3)", res.Iterations)
	}
	if res.Phase != PhaseDone {
		t.Errorf("Phase = %s, want %s", res.Phase, PhaseDone)
	}
	if llm.calls != 3 {
		t.Errorf("agent invoked %d times, want 3", llm.calls)
	}
	// Hitting the cap with no summary is a valid terminal condition.
	if st.Completed() {
		t.Error("state reports completed without a sentinel")
	}
}

func TestNetworkStopsOnSentinel(t *testing.T) {
	llm := &scriptedLLM{script: []LLMResponse{
		textResponse("working on it"),
		textResponse("<task_summary>Built a todo app</task_summary>"),
	}}
	n, st := newTestNetwork(llm, ToolRegistry{}, 15)

	res, err := n.Run(context.Background(), nil, st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", res.Iterations)
	}
	if got := st.Summary(); got != "<task_summary>Built a todo app</task_summary>" {
		t.Errorf("Summary() = %q, want verbatim sentinel text", got)
	}
}

func TestNetworkRouterSkipsWhenAlreadyCompleted(t *testing.T) {
	llm := &scriptedLLM{script: []LLMResponse{textResponse("should never run")}}
	n, st := newTestNetwork(llm, ToolRegistry{}, 15)
	st.SetSummary("<task_summary>done earlier</task_summary>")

	res, err := n.Run(context.Background(), nil, st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
	if llm.calls != 0 {
		t.Errorf("agent invoked %d times, want 0", llm.calls)
	}
}

func TestNetworkTurnCompletesBeforeTerminationDecision(t *testing.T) {
	// A turn whose text carries the sentinel AND requests tool calls must
	// still execute every tool call before the loop terminates.
	var toolRan bool
	tools := ToolRegistry{
		"touch": {
			Name:       "touch",
			SchemaJSON: `{"type":"object"}`,
			Fn: func(context.Context, map[string]any) (string, error) {
				toolRan = true
				return "ok", nil
			},
		},
	}
	llm := &scriptedLLM{script: []LLMResponse{{
		Assistant:    ChatMessage{Role: RoleAssistant, Content: "<task_summary>done</task_summary>"},
		ToolCalls:    []ToolCall{{ID: "call_1", Name: "touch", Args: map[string]any{}}},
		FinishReason: "tool_calls",
	}}}
	n, st := newTestNetwork(llm, tools, 15)

	res, err := n.Run(context.Background(), nil, st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !toolRan {
		t.Error("tool call skipped on the terminating turn")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	if !st.Completed() {
		t.Error("summary not recorded")
	}
}

func TestNetworkIgnoresSentinelInEarlierTurns(t *testing.T) {
	// Only the most recent assistant text is inspected each turn; history
	// containing the sentinel does not terminate the run.
	llm := &scriptedLLM{script: []LLMResponse{textResponse("no sentinel here")}}
	n, st := newTestNetwork(llm, ToolRegistry{}, 2)

	history := []ChatMessage{
		{Role: RoleUser, Content: "build it"},
		{Role: RoleAssistant, Content: "<task_summary>stale from a prior run</task_summary>"},
		{Role: RoleUser, Content: "now change it"},
	}

	res, err := n.Run(context.Background(), history, st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st.Completed() {
		t.Error("sentinel in pre-seeded history terminated the run")
	}
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want cap (2)", res.Iterations)
	}
}

func TestAgentTurnToolErrorDegradesToString(t *testing.T) {
	tools := ToolRegistry{
		"boom": {
			Name:       "boom",
			SchemaJSON: `{"type":"object"}`,
			Fn: func(context.Context, map[string]any) (string, error) {
				return "", context.DeadlineExceeded
			},
		},
	}
	llm := &scriptedLLM{script: []LLMResponse{{
		Assistant: ChatMessage{Role: RoleAssistant},
		ToolCalls: []ToolCall{{ID: "call_9", Name: "boom", Args: map[string]any{}}},
	}}}
	agent := &Agent{Name: "coder", Model: "m", LLM: llm, Tools: tools}

	history := []ChatMessage{{Role: RoleUser, Content: "go"}}
	turn, err := agent.Turn(context.Background(), &history, nil)
	if err != nil {
		t.Fatalf("Turn() error = %v, tool failures must not fault the turn", err)
	}
	if turn.ToolCalls != 1 {
		t.Fatalf("ToolCalls = %d, want 1", turn.ToolCalls)
	}

	last := history[len(history)-1]
	if last.Role != RoleTool {
		t.Fatalf("last history role = %s, want tool", last.Role)
	}
	if last.Content == "" || last.Content[:6] != "Error:" {
		t.Errorf("tool result = %q, want descriptive error string", last.Content)
	}
}
