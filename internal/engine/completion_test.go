package engine

import "testing"

func TestSentinelDetectorInspect(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantFound   bool
		wantSummary string
	}{
		{
			name:        "sentinel present",
			text:        "<task_summary>Built a todo app</task_summary>",
			wantFound:   true,
			wantSummary: "<task_summary>Built a todo app</task_summary>",
		},
		{
			name:        "sentinel with surrounding prose kept verbatim",
			text:        "All done!\n<task_summary>Added auth</task_summary>\nEnjoy.",
			wantFound:   true,
			wantSummary: "All done!\n<task_summary>Added auth</task_summary>\nEnjoy.",
		},
		{
			name:      "no sentinel",
			text:      "Still working on the routing layer.",
			wantFound: false,
		},
		{
			name:      "empty text from pure tool call turn",
			text:      "",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewAgentState()
			d := NewSentinelDetector()

			got := d.Inspect(tt.text, st)
			if got != tt.wantFound {
				t.Fatalf("Inspect() = %v, want %v", got, tt.wantFound)
			}
			if tt.wantFound {
				if st.Summary() != tt.wantSummary {
					t.Errorf("Summary() = %q, want %q", st.Summary(), tt.wantSummary)
				}
			} else if st.Summary() != "" {
				t.Errorf("Summary() = %q, want empty", st.Summary())
			}
		})
	}
}

func TestSentinelDetectorDoesNotOverwrite(t *testing.T) {
	st := NewAgentState()
	d := NewSentinelDetector()

	d.Inspect("<task_summary>one</task_summary>", st)
	d.Inspect("<task_summary>two</task_summary>", st)

	if got := st.Summary(); got != "<task_summary>one</task_summary>" {
		t.Errorf("Summary() = %q, want first summary preserved", got)
	}
}
