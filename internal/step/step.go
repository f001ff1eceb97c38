// Package step provides the durable unit-of-work capability the run driver
// and tools execute through. Every unit handed to a Runner must be
// idempotent: if the surrounding substrate retries after a crash, the step
// is safe to re-execute, and a memoized result is returned instead of
// repeating the side effect.
package step

import (
	"context"
	"sync"
)

// Fn is one idempotent unit of work producing a string result.
type Fn func(ctx context.Context) (string, error)

// Runner executes units of work with memoization keyed by (runID, stepID).
// A step that already produced a result returns it without re-executing.
// Failed steps are not memoized; a retry re-executes them.
type Runner interface {
	Do(ctx context.Context, runID, stepID string, fn Fn) (string, error)
}

// MemoryRunner memoizes step results in memory. Suitable for tests and for
// single-process runs where crash durability is not required.
type MemoryRunner struct {
	mu      sync.Mutex
	results map[string]string
}

// NewMemoryRunner creates an empty in-memory runner.
func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{results: make(map[string]string)}
}

// Do implements Runner.
func (r *MemoryRunner) Do(ctx context.Context, runID, stepID string, fn Fn) (string, error) {
	key := runID + "\x00" + stepID
	r.mu.Lock()
	if result, ok := r.results[key]; ok {
		r.mu.Unlock()
		return result, nil
	}
	r.mu.Unlock()

	result, err := fn(ctx)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.results[key] = result
	r.mu.Unlock()
	return result, nil
}
