package engine

import "context"

// Hook receives observability callbacks from the network loop.
type Hook interface {
	OnTurnStart(ctx context.Context, iteration int)
	OnBeforeLLM(ctx context.Context, messages []ChatMessage, toolSchemas []ToolSchema)
	OnAfterLLM(ctx context.Context, resp LLMResponse)
	OnToolCall(ctx context.Context, call ToolCall)
	OnToolResult(ctx context.Context, call ToolCall, result string)
	OnCompletion(ctx context.Context, summary string)
	OnDone(ctx context.Context, st *AgentState, iterations int)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnTurnStart(context.Context, int)                       {}
func (NopHook) OnBeforeLLM(context.Context, []ChatMessage, []ToolSchema) {}
func (NopHook) OnAfterLLM(context.Context, LLMResponse)                {}
func (NopHook) OnToolCall(context.Context, ToolCall)                   {}
func (NopHook) OnToolResult(context.Context, ToolCall, string)         {}
func (NopHook) OnCompletion(context.Context, string)                   {}
func (NopHook) OnDone(context.Context, *AgentState, int)               {}

// Hooks fans out callbacks to multiple hooks.
type Hooks []Hook

func (hs Hooks) OnTurnStart(ctx context.Context, iteration int) {
	for _, h := range hs {
		h.OnTurnStart(ctx, iteration)
	}
}

func (hs Hooks) OnBeforeLLM(ctx context.Context, messages []ChatMessage, toolSchemas []ToolSchema) {
	for _, h := range hs {
		h.OnBeforeLLM(ctx, messages, toolSchemas)
	}
}

func (hs Hooks) OnAfterLLM(ctx context.Context, resp LLMResponse) {
	for _, h := range hs {
		h.OnAfterLLM(ctx, resp)
	}
}

func (hs Hooks) OnToolCall(ctx context.Context, call ToolCall) {
	for _, h := range hs {
		h.OnToolCall(ctx, call)
	}
}

func (hs Hooks) OnToolResult(ctx context.Context, call ToolCall, result string) {
	for _, h := range hs {
		h.OnToolResult(ctx, call, result)
	}
}

func (hs Hooks) OnCompletion(ctx context.Context, summary string) {
	for _, h := range hs {
		h.OnCompletion(ctx, summary)
	}
}

func (hs Hooks) OnDone(ctx context.Context, st *AgentState, iterations int) {
	for _, h := range hs {
		h.OnDone(ctx, st, iterations)
	}
}
