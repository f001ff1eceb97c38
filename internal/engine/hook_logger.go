package engine

import (
	"context"
	"log"
)

// LoggerHook logs loop progress through a standard logger.
type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnTurnStart(_ context.Context, iteration int) {
	h.L.Printf("turn=%d start", iteration)
}

func (h LoggerHook) OnBeforeLLM(_ context.Context, msgs []ChatMessage, toolSchemas []ToolSchema) {
	h.L.Printf("📤 sending %d msgs, %d tools", len(msgs), len(toolSchemas))
}

func (h LoggerHook) OnAfterLLM(_ context.Context, resp LLMResponse) {
	h.L.Printf("📥 finish=%s tool_calls=%d tokens=%d", resp.FinishReason, len(resp.ToolCalls), resp.Usage.Total)
}

func (h LoggerHook) OnToolCall(_ context.Context, call ToolCall) {
	h.L.Printf("🔧 tool=%s id=%s", call.Name, call.ID)
}

func (h LoggerHook) OnToolResult(_ context.Context, call ToolCall, result string) {
	const maxPreview = 200
	preview := result
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "..."
	}
	h.L.Printf("🔧 tool=%s result=%q", call.Name, preview)
}

func (h LoggerHook) OnCompletion(_ context.Context, summary string) {
	h.L.Printf("✅ completion sentinel detected (%d chars)", len(summary))
}

func (h LoggerHook) OnDone(_ context.Context, st *AgentState, iterations int) {
	h.L.Printf("done after %d turns: files=%d completed=%v", iterations, st.FileCount(), st.Completed())
}
