package message

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCreateAndListRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		m := &Message{
			ProjectID: "proj-1",
			Role:      RoleUser,
			Type:      TypeResult,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatalf("CreateMessage(%q) error = %v", content, err)
		}
		if m.ID == "" {
			t.Fatal("CreateMessage did not assign an ID")
		}
	}

	got, err := s.ListRecent(ctx, "proj-1", 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRecent() returned %d messages, want 2", len(got))
	}
	// Newest-first ordering.
	if got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("ListRecent() order = [%q, %q], want newest-first", got[0].Content, got[1].Content)
	}
}

func TestStoreListRecentScopedByProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, project := range []string{"a", "b"} {
		if err := s.CreateMessage(ctx, &Message{
			ProjectID: project,
			Role:      RoleUser,
			Type:      TypeResult,
			Content:   "msg for " + project,
		}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListRecent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != "msg for a" {
		t.Errorf("ListRecent(a) = %+v, want only project a's message", got)
	}
}

func TestStoreFragmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &Message{
		ProjectID: "proj-1",
		Role:      RoleAssistant,
		Type:      TypeResult,
		Content:   "Built your app.",
		Fragment: &Fragment{
			SandboxURL: "https://172.17.0.2:3000",
			Title:      "Todo App",
			Files:      map[string]string{"app.js": "console.log(1)"},
		},
	}
	if err := s.CreateMessage(ctx, m); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	got, err := s.ListRecent(ctx, "proj-1", 1)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListRecent() returned %d messages, want 1", len(got))
	}
	f := got[0].Fragment
	if f == nil {
		t.Fatal("fragment not persisted")
	}
	if f.SandboxURL != "https://172.17.0.2:3000" || f.Title != "Todo App" {
		t.Errorf("fragment = %+v", f)
	}
	if f.Files["app.js"] != "console.log(1)" {
		t.Errorf("fragment files = %v", f.Files)
	}
}

func TestStoreErrorMessageHasNoFragment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateMessage(ctx, &Message{
		ProjectID: "proj-1",
		Role:      RoleAssistant,
		Type:      TypeError,
		Content:   "Something went wrong. Please try again.",
	}); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	got, err := s.ListRecent(ctx, "proj-1", 1)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if got[0].Fragment != nil {
		t.Errorf("error message carries fragment: %+v", got[0].Fragment)
	}
	if got[0].Type != TypeError {
		t.Errorf("type = %s, want %s", got[0].Type, TypeError)
	}
}
