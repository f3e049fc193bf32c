package hctx

import "context"

// State holds per-execution metadata that an agent can set and the executor
// reads back after the agent returns.
type State struct {
	TaskID       string
	AgentType    string
	Summary      string
	ReviewReason string
	NeedsReview  bool
}

// New creates a fresh state container for one task.
func New(taskID, agentType string) *State {
	return &State{TaskID: taskID, AgentType: agentType}
}

type ctxKey struct{}

// WithState returns a child context carrying the given state.
func WithState(parent context.Context, s *State) context.Context {
	return context.WithValue(parent, ctxKey{}, s)
}

// From extracts the state from context if present.
func From(ctx context.Context) (*State, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
