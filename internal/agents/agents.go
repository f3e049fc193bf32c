// Package agents holds the built-in agents: a generic LLM-backed agent used
// as the wildcard fallback, and the terminal discovery agent.
package agents

import (
	"context"
	"errors"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/llm"
)

// Agent types with dedicated behaviour.
const (
	TypeTerminalDiscovery = "terminal_discovery"
	TypePipelineTariff    = "pipeline_tariff"
)

// DefaultTariffThreshold is the $/gallon rate above which a tariff is flagged.
const DefaultTariffThreshold = 0.5

// ErrNoCompleter is returned by Register without an LLM.
var ErrNoCompleter = errors.New("agents: llm completer is required")

// Completer sends one prompt to an LLM and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, r llm.Request) (string, error)
}

// Deps configures Register.
type Deps struct {
	LLM Completer
	// Terminals enables the terminal discovery agent when set.
	Terminals TerminalSink
	// TariffThreshold defaults to DefaultTariffThreshold.
	TariffThreshold float64
	Logger          supplyq.Logger
}

// Register installs the generic agent as the wildcard, the terminal discovery
// agent, and the review policies for terminal discovery and pipeline tariffs.
func Register(mux *supplyq.Mux, d Deps) error {
	if d.LLM == nil {
		return ErrNoCompleter
	}
	if d.Logger == nil {
		d.Logger = supplyq.NopLogger()
	}
	if d.TariffThreshold <= 0 {
		d.TariffThreshold = DefaultTariffThreshold
	}

	mux.Handle(supplyq.Wildcard, NewGeneric(d.LLM))
	mux.Review(TypePipelineTariff, TariffPolicy(d.TariffThreshold))
	if d.Terminals != nil {
		mux.Handle(TypeTerminalDiscovery, NewTerminalDiscovery(d.LLM, d.Terminals, d.Logger), TerminalDiscoveryPolicy)
	} else {
		mux.Review(TypeTerminalDiscovery, TerminalDiscoveryPolicy)
	}
	return nil
}
