package engine

import "strings"

// TaskSummaryTag is the sentinel the coding agent emits in its normal
// language channel to signal task completion. The summary text stored on
// the state is the agent's raw completion message, markup included;
// downstream consumers must tolerate the tag.
const TaskSummaryTag = "<task_summary>"

// CompletionDetector turns unstructured model text into a machine-checkable
// termination signal. It is the single seam where the substring contract
// lives, so it can later be replaced by a structured completion signal
// without touching the network loop.
type CompletionDetector interface {
	// Inspect scans the most recent assistant text of a turn. If the text
	// carries the completion sentinel, it records the entire text verbatim
	// as the run summary and returns true. Empty text (a pure tool-call
	// turn) is a no-op.
	Inspect(text string, st *AgentState) bool
}

// SentinelDetector matches a fixed substring tag.
type SentinelDetector struct {
	Tag string
}

// NewSentinelDetector returns a detector for the default task summary tag.
func NewSentinelDetector() SentinelDetector {
	return SentinelDetector{Tag: TaskSummaryTag}
}

// Inspect implements CompletionDetector.
func (d SentinelDetector) Inspect(text string, st *AgentState) bool {
	if text == "" {
		return false
	}
	if !strings.Contains(text, d.Tag) {
		return false
	}
	st.SetSummary(text)
	return true
}
