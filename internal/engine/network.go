package engine

import (
	"context"
	"fmt"
)

// Phase represents the loop's position in its turn state machine.
type Phase string

const (
	PhaseTurnPending     Phase = "turn_pending"
	PhaseAgentExecuting  Phase = "agent_executing"
	PhaseCompletionCheck Phase = "completion_check"
	PhaseDone            Phase = "done"
)

// DefaultMaxIterations bounds a run when the agent never signals
// completion. Hitting the cap is a valid terminal condition, not an error.
const DefaultMaxIterations = 15

// Router selects which agent runs the next turn. Returning nil terminates
// the loop. A single-agent network degenerates to "same agent or stop",
// but the selection stays polymorphic so multi-agent variants slot in
// without changing the loop's state machine.
type Router interface {
	Route(iteration int, st *AgentState) *Agent
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(iteration int, st *AgentState) *Agent

func (f RouterFunc) Route(iteration int, st *AgentState) *Agent {
	return f(iteration, st)
}

// CompletionRouter keeps selecting the same agent until the state carries a
// completion summary, then selects no one.
type CompletionRouter struct {
	Agent *Agent
}

func (r CompletionRouter) Route(_ int, st *AgentState) *Agent {
	if st.Completed() {
		return nil
	}
	return r.Agent
}

// Network drives agents through the orchestration loop: select an agent,
// run one full turn, check the turn's final assistant text for the
// completion sentinel, repeat until the router stops or the iteration cap
// forces termination.
type Network struct {
	Router        Router
	Detector      CompletionDetector
	MaxIterations int
	Hooks         Hooks
}

// NewNetwork builds a single-agent network with the default sentinel
// detector and iteration cap.
func NewNetwork(agent *Agent, hooks ...Hook) *Network {
	return &Network{
		Router:        CompletionRouter{Agent: agent},
		Detector:      NewSentinelDetector(),
		MaxIterations: DefaultMaxIterations,
		Hooks:         hooks,
	}
}

// NetworkResult carries what the loop produced.
type NetworkResult struct {
	Iterations int
	Phase      Phase
	Usage      Usage
}

// Run executes the loop against the shared state. History must be ordered
// oldest-first; the slice is appended to as turns produce output. The
// summary field is re-evaluated fresh on every iteration boundary: a tool
// call that sets it mid-turn is not checked until that turn's output is
// produced, so one turn always completes atomically before a termination
// decision is made.
//
// Run returns with st.Summary() possibly still empty when the cap was hit
// first; that is the run's failure signal, not an error. Errors are
// reserved for agent invocation faults (the LLM call itself failing after
// the provider's own retries).
func (n *Network) Run(ctx context.Context, history []ChatMessage, st *AgentState) (NetworkResult, error) {
	maxIter := n.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	res := NetworkResult{Phase: PhaseTurnPending}
	for {
		// TURN_PENDING: the router decides whether anyone runs next.
		agent := n.Router.Route(res.Iterations, st)
		if agent == nil {
			res.Phase = PhaseDone
			break
		}

		// AGENT_EXECUTING: one full turn, tool calls included.
		res.Phase = PhaseAgentExecuting
		n.Hooks.OnTurnStart(ctx, res.Iterations)
		turn, err := agent.Turn(ctx, &history, n.Hooks)
		if err != nil {
			return res, fmt.Errorf("turn %d: %w", res.Iterations, err)
		}
		res.Usage.Prompt += turn.Usage.Prompt
		res.Usage.Completion += turn.Usage.Completion
		res.Usage.Total += turn.Usage.Total

		// COMPLETION_CHECK: only the most recent assistant text is
		// inspected; a sentinel in an earlier message is ignored.
		res.Phase = PhaseCompletionCheck
		if n.Detector.Inspect(turn.AssistantText, st) {
			n.Hooks.OnCompletion(ctx, st.Summary())
		}

		res.Iterations++
		if res.Iterations >= maxIter {
			res.Phase = PhaseDone
			break
		}
		res.Phase = PhaseTurnPending
	}

	n.Hooks.OnDone(ctx, st, res.Iterations)
	return res, nil
}
