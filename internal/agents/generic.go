package agents

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/llm"
)

// Generic answers any task by prompting the LLM with a type-specific system
// prompt. The first JSON object in the reply is the result; a reply without
// one is wrapped as {"status": "completed", "result": <text>}.
type Generic struct {
	llm Completer
}

// NewGeneric creates the fallback agent.
func NewGeneric(c Completer) *Generic {
	return &Generic{llm: c}
}

// Run implements supplyq.Agent.
func (g *Generic) Run(ctx context.Context, t *supplyq.Task) (supplyq.Result, error) {
	params := t.Params
	if params == nil {
		params = map[string]any{}
	}
	pj, err := sonic.ConfigStd.MarshalIndent(params, "", "  ")
	if err != nil {
		return nil, err
	}

	text, err := g.llm.Complete(ctx, llm.Request{
		System: SystemPrompt(t.AgentType),
		User:   t.Description + "\n\nParameters: " + string(pj),
	})
	if err != nil {
		return nil, err
	}

	if obj, ok := firstObject(text, nil); ok {
		var r supplyq.Result
		if err := sonic.UnmarshalString(obj, &r); err == nil {
			return r, nil
		}
	}
	return supplyq.Result{
		"status":     "completed",
		"result":     text,
		"agent_type": t.AgentType,
	}, nil
}
