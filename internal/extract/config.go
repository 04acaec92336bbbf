package extract

import (
	"fmt"

	"github.com/jackzampolin/pcr/internal/config"
	"github.com/jackzampolin/pcr/internal/providers"
)

// FromConfig builds an Agent for the default LLM provider. The extraction
// settings come from cfg; base supplies the logger and metrics recorder.
// When the provider has no registered client, the returned Agent is still
// usable (Extract returns ErrNoClient) and err says why.
func FromConfig(registry *providers.Registry, cfg *config.Config, base Options) (*Agent, error) {
	opts := base
	opts.Model = cfg.Extraction.Model
	opts.MaxTokens = cfg.Extraction.MaxTokens
	opts.Timeout = cfg.Extraction.Timeout
	opts.Validation = cfg.Extraction.Validation

	name := cfg.Defaults.LLMProvider
	if name == "" {
		return New(nil, opts), fmt.Errorf("%w: defaults.llm_provider is empty", ErrNoClient)
	}

	client, err := registry.GetLLM(name)
	if err != nil {
		return New(nil, opts), fmt.Errorf("default provider %q: %w", name, err)
	}
	return New(client, opts), nil
}
