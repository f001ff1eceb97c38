package engine

import "sync"

// AgentState is the mutable record shared across every turn and tool call
// of one run. It is created with empty defaults, passed by pointer into the
// network and every tool, and never replaced wholesale: only its two fields
// mutate in place.
//
// Turns execute strictly sequentially, so there is never more than one
// writer at a time. The mutex only makes a Files merge atomic from the
// loop's perspective: no turn may observe a half-applied merge.
type AgentState struct {
	mu      sync.Mutex
	files   map[string]string
	summary string
}

// NewAgentState returns a state with empty defaults.
func NewAgentState() *AgentState {
	return &AgentState{files: make(map[string]string)}
}

// MergeFiles applies entries to the accumulated file mapping, last write
// wins per path. Entries for other paths are preserved; the mapping never
// shrinks within a run.
func (s *AgentState) MergeFiles(entries map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, content := range entries {
		s.files[path] = content
	}
}

// Files returns a copy of the accumulated file mapping.
func (s *AgentState) Files() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.files))
	for path, content := range s.files {
		out[path] = content
	}
	return out
}

// FileCount reports how many files the run has accumulated.
func (s *AgentState) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// SetSummary records the completion summary. The transition empty ->
// non-empty happens at most once per run: later calls are ignored so the
// first completion signal is never overwritten.
func (s *AgentState) SetSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == "" {
		s.summary = summary
	}
}

// Summary returns the completion summary, or "" if the run has not
// completed.
func (s *AgentState) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Completed reports whether a completion summary has been recorded.
func (s *AgentState) Completed() bool {
	return s.Summary() != ""
}
