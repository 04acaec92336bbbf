package extract

import (
	"context"
	"sync/atomic"

	"github.com/jackzampolin/pcr/internal/report"
)

// Extractor is what the HTTP layer depends on.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Outcome, error)
}

// Holder is an Extractor whose Agent can be swapped at runtime, e.g. when
// the config file changes. In-flight extractions keep the Agent they started with.
type Holder struct {
	agent atomic.Pointer[Agent]
}

// NewHolder creates a Holder around agent (which may be nil).
func NewHolder(agent *Agent) *Holder {
	h := &Holder{}
	h.agent.Store(agent)
	return h
}

// Store replaces the current agent.
func (h *Holder) Store(agent *Agent) {
	h.agent.Store(agent)
}

// Load returns the current agent, or nil.
func (h *Holder) Load() *Agent {
	return h.agent.Load()
}

// Ready reports whether an agent with a client is installed.
func (h *Holder) Ready() bool {
	a := h.agent.Load()
	return a != nil && a.client != nil
}

// ProviderName returns the current agent's provider, or "".
func (h *Holder) ProviderName() string {
	return h.agent.Load().ProviderName()
}

// Model returns the current agent's model override, or "".
func (h *Holder) Model() string {
	if a := h.agent.Load(); a != nil {
		return a.Model()
	}
	return ""
}

// Validation returns the current agent's validation mode.
func (h *Holder) Validation() string {
	if a := h.agent.Load(); a != nil {
		return a.Validation()
	}
	return report.ModeOff
}

// Extract delegates to the current agent.
func (h *Holder) Extract(ctx context.Context, text string) (*Outcome, error) {
	a := h.agent.Load()
	if a == nil {
		return nil, ErrNoClient
	}
	return a.Extract(ctx, text)
}

var (
	_ Extractor = (*Agent)(nil)
	_ Extractor = (*Holder)(nil)
)
