package supplyq

import (
	"context"
	"sort"
)

// Wildcard is the agent type used as a fallback when no agent is registered
// for a task's own type.
const Wildcard = "*"

// Result is the structured output of an agent.
type Result map[string]any

// Agent runs one task and returns its structured result.
type Agent interface {
	Run(ctx context.Context, t *Task) (Result, error)
}

// HandlerFunc is the function signature for processing a task.
type HandlerFunc func(ctx context.Context, t *Task) (Result, error)

// Run lets a HandlerFunc be used as an Agent.
func (f HandlerFunc) Run(ctx context.Context, t *Task) (Result, error) { return f(ctx, t) }

// Middleware is a function that wraps a HandlerFunc to provide cross-cutting concerns.
type Middleware func(HandlerFunc) HandlerFunc

// ReviewPolicy inspects a completed result and decides whether a human must look at it.
// The returned reason is reported alongside the flag.
type ReviewPolicy func(r Result) (bool, string)

type handler struct {
	exec HandlerFunc
}

// Mux routes tasks to their respective agents based on agent type and
// holds the review policy for each type.
type Mux struct {
	handlers    map[string]handler
	policies    map[string]ReviewPolicy
	middlewares []Middleware
}

// NewMux creates a new agent Mux.
func NewMux() *Mux {
	return &Mux{
		handlers:    make(map[string]handler),
		policies:    make(map[string]ReviewPolicy),
		middlewares: []Middleware{},
	}
}

// Handle registers an agent for a specific agent type. An optional review
// policy may be registered with it; a nil policy leaves any existing one untouched.
func (m *Mux) Handle(agentType string, a Agent, policy ...ReviewPolicy) {
	m.handlers[agentType] = handler{exec: a.Run}
	for _, p := range policy {
		if p != nil {
			m.policies[agentType] = p
		}
	}
}

// HandleFunc registers a plain function as the agent for agentType, with an
// optional review policy like Handle.
func (m *Mux) HandleFunc(agentType string, fn func(context.Context, *Task) (Result, error), policy ...ReviewPolicy) {
	m.Handle(agentType, HandlerFunc(fn), policy...)
}

// Review registers a review policy for agentType without changing its agent.
// This is how types served by the wildcard agent get their own policy.
func (m *Mux) Review(agentType string, policy ReviewPolicy) {
	if policy == nil {
		delete(m.policies, agentType)
		return
	}
	m.policies[agentType] = policy
}

// Use adds middleware(s) to the mux. Middlewares are executed in the order they are added.
func (m *Mux) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// Types returns the registered agent types, sorted.
func (m *Mux) Types() []string {
	out := make([]string, 0, len(m.handlers))
	for t := range m.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// resolve returns the wrapped handler for agentType, falling back to the wildcard.
func (m *Mux) resolve(agentType string) (HandlerFunc, bool) {
	h, ok := m.handlers[agentType]
	if !ok {
		h, ok = m.handlers[Wildcard]
		if !ok {
			return nil, false
		}
	}
	return m.wrapHandler(h.exec), true
}

// policy returns the review policy for agentType. Wildcard policies are not inherited.
func (m *Mux) policy(agentType string) ReviewPolicy {
	return m.policies[agentType]
}

func (m *Mux) wrapHandler(h HandlerFunc) HandlerFunc {
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h
}
