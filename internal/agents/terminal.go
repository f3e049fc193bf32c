package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/assets"
	"github.com/supplymap/supplyq/internal/llm"
)

// TerminalAgentName is recorded as created_by and in the quality log.
const TerminalAgentName = "terminal_discovery_agent"

// terminalMaxTokens leaves room for a full terminal listing.
const terminalMaxTokens = 16000

// ErrNoTerminalData is returned when the reply holds no terminal listing.
var ErrNoTerminalData = errors.New("agents: could not retrieve IRS terminal data")

// TerminalSink stores validated terminal candidates.
type TerminalSink interface {
	SyncTerminals(ctx context.Context, cands []*assets.Candidate, agentName string) (assets.SyncResult, error)
}

// TerminalDiscovery asks the LLM for the IRS Publication 510 terminal list,
// validates it and syncs it into the asset store.
type TerminalDiscovery struct {
	llm  Completer
	sink TerminalSink
	log  supplyq.Logger
	now  func() time.Time
}

// NewTerminalDiscovery creates the agent.
func NewTerminalDiscovery(c Completer, sink TerminalSink, l supplyq.Logger) *TerminalDiscovery {
	if l == nil {
		l = supplyq.NopLogger()
	}
	return &TerminalDiscovery{llm: c, sink: sink, log: l, now: time.Now}
}

// Run implements supplyq.Agent.
func (a *TerminalDiscovery) Run(ctx context.Context, t *supplyq.Task) (supplyq.Result, error) {
	text, err := a.llm.Complete(ctx, llm.Request{User: terminalPrompt, MaxTokens: terminalMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTerminalData, err)
	}
	obj, ok := firstObject(text, func(r gjson.Result) bool { return r.Get("terminals").IsArray() })
	if !ok {
		return nil, ErrNoTerminalData
	}

	var cands []*assets.Candidate
	if err := sonic.UnmarshalString(gjson.Get(obj, "terminals").Raw, &cands); err != nil {
		return nil, fmt.Errorf("%w: decode terminals: %w", ErrNoTerminalData, err)
	}
	a.log.Infof("task=%s found %d terminals in IRS publication", t.ID, len(cands))

	low := 0
	valid := cands[:0]
	for _, c := range cands {
		if c == nil {
			continue
		}
		assets.Validate(c)
		if c.Confidence == assets.ConfidenceLow {
			low++
		}
		valid = append(valid, c)
	}

	res, err := a.sink.SyncTerminals(ctx, valid, TerminalAgentName)
	if err != nil {
		return nil, fmt.Errorf("sync terminals: %w", err)
	}
	a.log.Infof("task=%s terminals new=%d updated=%d low_confidence=%d", t.ID, res.New, res.Updated, low)

	out := supplyq.Result{
		"status":                     "completed",
		"total_found":                len(valid),
		"new_terminals":              res.New,
		"updated_terminals":          res.Updated,
		"terminals_requiring_review": low,
		"timestamp":                  a.now().UTC().Format(time.RFC3339),
	}
	for _, k := range []string{"publication_date", "source_url"} {
		if v := gjson.Get(obj, k).String(); v != "" {
			out[k] = v
		}
	}
	return out, nil
}
