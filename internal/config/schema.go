package config

import "time"

// Config holds pcr configuration.
// Stored at: ~/.pcr/config.yaml (or ./config.yaml, or --config).
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server" json:"server"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log" json:"log"`
	Metrics      MetricsCfg                `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type         string `mapstructure:"type" yaml:"type" json:"type"`                                                  // "gemini", "openai", "mock"
	Model        string `mapstructure:"model" yaml:"model" json:"model"`                                               // Default model name
	APIKey       string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`                                         // API key (supports ${ENV_VAR} syntax)
	BaseURL      string `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`                  // Optional endpoint override
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ResponseText string `mapstructure:"response_text" yaml:"response_text,omitempty" json:"response_text,omitempty"` // Canned reply (mock only)
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"`
}

// ExtractionCfg tunes the /report_create model call.
type ExtractionCfg struct {
	// Model overrides the provider's model when set.
	Model string `mapstructure:"model" yaml:"model" json:"model"`
	// MaxTokens caps the response length (0 = provider default).
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	// Timeout bounds one model call (0 = none).
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	// Validation is off, warn or strict.
	Validation string `mapstructure:"validation" yaml:"validation" json:"validation"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host        string   `mapstructure:"host" yaml:"host" json:"host"`
	Port        string   `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LogCfg configures the slog handler.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`    // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text or json
}

// MetricsCfg sizes the in-memory window of extraction call records.
type MetricsCfg struct {
	// Window is the number of most recent calls kept (0 = no recording).
	// Read once at startup.
	Window int `mapstructure:"window" yaml:"window" json:"window"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.5-flash-lite",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "gemini",
		},
		Extraction: ExtractionCfg{
			Validation: "off",
		},
		Server: ServerCfg{
			Host:        "0.0.0.0",
			Port:        "8000",
			CORSOrigins: []string{"*"},
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsCfg{
			Window: 1000,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
