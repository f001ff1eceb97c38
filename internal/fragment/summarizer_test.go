package fragment

import (
	"context"
	"testing"

	"github.com/ChamsBouzaiene/forge/internal/engine"
)

// cannedLLM replies with a fixed string and records the last call.
type cannedLLM struct {
	reply    string
	lastMsgs []engine.ChatMessage
}

func (c *cannedLLM) Chat(_ context.Context, _ string, messages []engine.ChatMessage, _ []engine.ToolSchema, _ engine.ChatOptions) (engine.LLMResponse, error) {
	c.lastMsgs = messages
	return engine.LLMResponse{
		Assistant:    engine.ChatMessage{Role: engine.RoleAssistant, Content: c.reply},
		FinishReason: "stop",
	}, nil
}

func TestGenerateTitle(t *testing.T) {
	llm := &cannedLLM{reply: "  Todo App \n"}
	s := NewSummarizer(llm, "test-model")

	summary := "<task_summary>Built a todo app with drag and drop</task_summary>"
	title, err := s.GenerateTitle(context.Background(), summary)
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if title != "Todo App" {
		t.Errorf("title = %q, want trimmed reply", title)
	}

	// The raw summary, markup included, is what the generator consumes.
	if len(llm.lastMsgs) != 2 || llm.lastMsgs[1].Content != summary {
		t.Errorf("generator did not receive the verbatim summary: %+v", llm.lastMsgs)
	}
}

func TestGenerateTitleEmptySummary(t *testing.T) {
	llm := &cannedLLM{reply: "should not be called"}
	s := NewSummarizer(llm, "test-model")

	title, err := s.GenerateTitle(context.Background(), "")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if title != "Fragment" {
		t.Errorf("title = %q, want fallback", title)
	}
	if llm.lastMsgs != nil {
		t.Error("LLM called for an empty summary")
	}
}

func TestGenerateResponse(t *testing.T) {
	llm := &cannedLLM{reply: "Your todo app is ready to try!"}
	s := NewSummarizer(llm, "test-model")

	response, err := s.GenerateResponse(context.Background(), "<task_summary>Built a todo app</task_summary>")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if response != "Your todo app is ready to try!" {
		t.Errorf("response = %q", response)
	}
}
