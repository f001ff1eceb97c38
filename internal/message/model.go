// Package message persists conversation turns and run outcomes per
// project, and serves the recent-history window that seeds each run.
package message

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Type classifies an assistant message.
type Type string

const (
	TypeResult Type = "result"
	TypeError  Type = "error"
)

// Fragment is the generated-app payload attached to a successful run's
// result message.
type Fragment struct {
	SandboxURL string            `json:"sandboxUrl"`
	Title      string            `json:"title"`
	Files      map[string]string `json:"files"`
}

// Message is one persisted conversation turn.
type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Role      Role      `json:"role"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	Fragment  *Fragment `json:"fragment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
