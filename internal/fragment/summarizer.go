// Package fragment derives the human-facing title and response from a
// run's completion summary. Both generators are single-shot LLM calls,
// independent of each other and of the orchestration loop.
package fragment

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/prompts"
)

// Summarizer handles LLM-based generation from the completion summary.
type Summarizer struct {
	llm   engine.LLMClient
	model string
}

// NewSummarizer creates a new fragment summarizer.
func NewSummarizer(llm engine.LLMClient, model string) *Summarizer {
	return &Summarizer{llm: llm, model: model}
}

// GenerateTitle generates a short fragment title from the completion
// summary. The summary text is the agent's raw completion message, sentinel
// markup included; the prompt tolerates that.
func (s *Summarizer) GenerateTitle(ctx context.Context, summary string) (string, error) {
	if summary == "" {
		return "Fragment", nil
	}

	prompt, err := prompts.DefaultRegistry().GetLatest("fragment-title")
	if err != nil {
		return "", fmt.Errorf("failed to load title prompt: %w", err)
	}

	msgs := []engine.ChatMessage{
		{Role: engine.RoleSystem, Content: prompt.Content},
		{Role: engine.RoleUser, Content: summary},
	}

	resp, err := s.llm.Chat(ctx, s.model, msgs, nil, engine.ChatOptions{
		MaxOutputTokens: 20,
		Temperature:     0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	title := strings.TrimSpace(resp.Assistant.Content)
	if title == "" {
		return "Fragment", nil
	}
	return title, nil
}

// GenerateResponse generates the user-facing message describing what was
// built.
func (s *Summarizer) GenerateResponse(ctx context.Context, summary string) (string, error) {
	if summary == "" {
		return "Here you go!", nil
	}

	prompt, err := prompts.DefaultRegistry().GetLatest("response")
	if err != nil {
		return "", fmt.Errorf("failed to load response prompt: %w", err)
	}

	msgs := []engine.ChatMessage{
		{Role: engine.RoleSystem, Content: prompt.Content},
		{Role: engine.RoleUser, Content: summary},
	}

	resp, err := s.llm.Chat(ctx, s.model, msgs, nil, engine.ChatOptions{
		MaxOutputTokens: 200,
		Temperature:     0.5,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	response := strings.TrimSpace(resp.Assistant.Content)
	if response == "" {
		return "Here you go!", nil
	}
	return response, nil
}
