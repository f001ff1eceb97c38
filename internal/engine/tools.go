package engine

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes one tool invocation. Implementations must convert any
// underlying failure into a descriptive string result instead of returning
// an error: the agent reads the string and reacts (retry a different
// command, fix a path) rather than aborting the run. A returned error is
// reserved for contract violations such as malformed arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one side-effecting operation available to the agent. Tool
// handlers must stay idempotent: re-running with the same inputs produces
// the same end state, which lets the ambient durable-step substrate retry
// them safely.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
}

// ValidateArgs validates the provided arguments against the tool's JSON
// schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, verr := range result.Errors() {
			errorMsgs = append(errorMsgs, verr.String())
		}
		return &ToolValidationError{ToolName: t.Name, Errors: errorMsgs}
	}

	return nil
}

// ToolValidationError reports schema validation failures for a tool call.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.ToolName, e.Errors)
}

// ToolRegistry maps tool names to tools.
type ToolRegistry map[string]Tool

// Schemas returns the provider-facing schemas for every registered tool.
func (r ToolRegistry) Schemas() []ToolSchema {
	s := make([]ToolSchema, 0, len(r))
	for _, t := range r {
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return s
}

// Names returns the registered tool names, for error messages.
func (r ToolRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
