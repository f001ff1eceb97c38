// Package runner drives one run end to end: provision a sandbox, seed the
// conversation from recent project history, execute the orchestration loop,
// derive the fragment, and persist the outcome.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ChamsBouzaiene/forge/internal/coder"
	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/fragment"
	"github.com/ChamsBouzaiene/forge/internal/message"
	"github.com/ChamsBouzaiene/forge/internal/sandbox"
	"github.com/ChamsBouzaiene/forge/internal/step"
)

// ErrorResponseText is the fixed user-facing message persisted when a run
// fails. Internal failure detail never leaks to the conversation.
const ErrorResponseText = "Something went wrong. Please try again."

// Trigger is one run request.
type Trigger struct {
	RunID     string
	ProjectID string
	Prompt    string
	Template  string
}

// Result is what a completed run produced.
type Result struct {
	Success    bool
	SandboxURL string
	Title      string
	Response   string
	Summary    string
	Files      map[string]string
	Iterations int
}

// Driver executes runs. All collaborators are shared across runs; per-run
// state lives on the stack of Run.
type Driver struct {
	Sandboxes     sandbox.Manager
	Store         *message.Store
	Steps         step.Runner
	LLM           engine.LLMClient
	Model         string
	MaxIterations int
	HistoryWindow int
	DevPort       int
	TTL           time.Duration
	Hooks         engine.Hooks
}

// Run executes one run to completion. The returned error covers
// infrastructure faults only; an agent that never completes or produces no
// files is a failed run, not an error, and is reported through
// Result.Success after the failure outcome is persisted.
func (d *Driver) Run(ctx context.Context, trig Trigger) (Result, error) {
	if trig.Prompt == "" {
		return Result{}, fmt.Errorf("run %s: empty prompt", trig.RunID)
	}

	// The user message goes in first so the run is visible in history even
	// if everything after this fails. Memoized so a replay does not
	// duplicate it.
	_, err := d.Steps.Do(ctx, trig.RunID, "persist-user-message", func(ctx context.Context) (string, error) {
		m := &message.Message{
			ProjectID: trig.ProjectID,
			Role:      message.RoleUser,
			Type:      message.TypeResult,
			Content:   trig.Prompt,
		}
		if err := d.Store.CreateMessage(ctx, m); err != nil {
			return "", err
		}
		return m.ID, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("run %s: persist user message: %w", trig.RunID, err)
	}

	// Session handles cannot be rebuilt from a memoized string, so
	// provisioning is not step-wrapped; a replayed run gets a fresh
	// sandbox.
	session, err := d.Sandboxes.Create(ctx, trig.Template)
	if err != nil {
		if perr := d.persistFailure(ctx, trig); perr != nil {
			log.Printf("⚠️  Failed to persist failure outcome: %v", perr)
		}
		return Result{}, fmt.Errorf("run %s: create sandbox: %w", trig.RunID, err)
	}
	if d.TTL > 0 {
		session.SetTimeout(d.TTL)
	}

	// Scaffolding CLIs create files the write tool never sees; the watcher
	// picks those up for the fragment.
	watcher, err := sandbox.NewWorkspaceWatcher(session.WorkspaceDir())
	if err == nil {
		if startErr := watcher.Start(); startErr != nil {
			log.Printf("⚠️  Workspace watcher disabled: %v", startErr)
			watcher = nil
		}
	} else {
		log.Printf("⚠️  Workspace watcher disabled: %v", err)
		watcher = nil
	}

	st := engine.NewAgentState()
	agent, err := coder.NewAgent(coder.Config{LLM: d.LLM, Model: d.Model}, session, st, d.Steps, trig.RunID)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: build agent: %w", trig.RunID, err)
	}

	history, err := d.loadHistory(ctx, trig.ProjectID)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: load history: %w", trig.RunID, err)
	}

	network := engine.NewNetwork(agent, d.Hooks...)
	if d.MaxIterations > 0 {
		network.MaxIterations = d.MaxIterations
	}

	loopRes, loopErr := network.Run(ctx, history, st)
	if loopErr != nil {
		log.Printf("❌ Run %s: loop failed after %d iterations: %v", trig.RunID, loopRes.Iterations, loopErr)
	}

	files := d.collectFiles(st, watcher)
	summary := st.Summary()

	res := Result{
		Summary:    summary,
		Files:      files,
		Iterations: loopRes.Iterations,
	}

	// Success requires both a completion signal and produced files.
	if loopErr != nil || summary == "" || len(files) == 0 {
		if err := d.persistFailure(ctx, trig); err != nil {
			return res, fmt.Errorf("run %s: persist failure outcome: %w", trig.RunID, err)
		}
		return res, nil
	}

	summarizer := fragment.NewSummarizer(d.LLM, d.Model)
	title, err := d.Steps.Do(ctx, trig.RunID, "generate-fragment-title", func(ctx context.Context) (string, error) {
		return summarizer.GenerateTitle(ctx, summary)
	})
	if err != nil {
		log.Printf("⚠️  Run %s: title generation failed: %v", trig.RunID, err)
		title = "Fragment"
	}
	response, err := d.Steps.Do(ctx, trig.RunID, "generate-response", func(ctx context.Context) (string, error) {
		return summarizer.GenerateResponse(ctx, summary)
	})
	if err != nil {
		log.Printf("⚠️  Run %s: response generation failed: %v", trig.RunID, err)
		response = "Here you go!"
	}

	devPort := d.DevPort
	if devPort == 0 {
		devPort = 3000
	}
	host, err := session.Host(ctx, devPort)
	if err != nil {
		if perr := d.persistFailure(ctx, trig); perr != nil {
			log.Printf("⚠️  Failed to persist failure outcome: %v", perr)
		}
		return res, fmt.Errorf("run %s: resolve sandbox host: %w", trig.RunID, err)
	}
	sandboxURL := "https://" + host

	_, err = d.Steps.Do(ctx, trig.RunID, "persist-result", func(ctx context.Context) (string, error) {
		m := &message.Message{
			ProjectID: trig.ProjectID,
			Role:      message.RoleAssistant,
			Type:      message.TypeResult,
			Content:   response,
			Fragment: &message.Fragment{
				SandboxURL: sandboxURL,
				Title:      title,
				Files:      files,
			},
		}
		if err := d.Store.CreateMessage(ctx, m); err != nil {
			return "", err
		}
		return m.ID, nil
	})
	if err != nil {
		return res, fmt.Errorf("run %s: persist result: %w", trig.RunID, err)
	}

	log.Printf("✅ Run %s: %d iterations, %d files, fragment %q", trig.RunID, loopRes.Iterations, len(files), title)

	res.Success = true
	res.SandboxURL = sandboxURL
	res.Title = title
	res.Response = response
	return res, nil
}

// loadHistory seeds the conversation with the project's recent turns,
// oldest-first. The just-persisted trigger message is part of the window.
func (d *Driver) loadHistory(ctx context.Context, projectID string) ([]engine.ChatMessage, error) {
	window := d.HistoryWindow
	if window <= 0 {
		window = 5
	}

	recent, err := d.Store.ListRecent(ctx, projectID, window)
	if err != nil {
		return nil, err
	}

	// ListRecent is newest-first; the model needs chronological order.
	history := make([]engine.ChatMessage, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		role := engine.RoleUser
		if m.Role == message.RoleAssistant {
			role = engine.RoleAssistant
		}
		history = append(history, engine.ChatMessage{Role: role, Content: m.Content})
	}
	return history, nil
}

// collectFiles merges watcher-observed files with state-tracked ones.
// Tool-written entries win on conflict; the state is authoritative for
// anything the agent wrote explicitly.
func (d *Driver) collectFiles(st *engine.AgentState, watcher *sandbox.WorkspaceWatcher) map[string]string {
	files := make(map[string]string)
	if watcher != nil {
		for path, content := range watcher.Collect() {
			files[path] = content
		}
		if err := watcher.Stop(); err != nil {
			log.Printf("⚠️  Watcher stop: %v", err)
		}
	}
	for path, content := range st.Files() {
		files[path] = content
	}
	return files
}

// persistFailure records the fixed failure outcome. The message carries no
// fragment and no internal error detail.
func (d *Driver) persistFailure(ctx context.Context, trig Trigger) error {
	_, err := d.Steps.Do(ctx, trig.RunID, "persist-error", func(ctx context.Context) (string, error) {
		m := &message.Message{
			ProjectID: trig.ProjectID,
			Role:      message.RoleAssistant,
			Type:      message.TypeError,
			Content:   ErrorResponseText,
		}
		if err := d.Store.CreateMessage(ctx, m); err != nil {
			return "", err
		}
		return m.ID, nil
	})
	return err
}
