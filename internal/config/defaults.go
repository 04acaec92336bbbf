package config

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry is a single flattened configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DefaultEntries returns the default configuration as flattened entries.
// These seed viper's defaults, so every key here can be overridden by
// the config file or by a PCR_ environment variable.
func DefaultEntries() []Entry {
	d := DefaultConfig()

	entries := []Entry{
		{
			Key:         "defaults.llm_provider",
			Value:       d.Defaults.LLMProvider,
			Description: "Provider used for /report_create",
		},
		{
			Key:         "extraction.model",
			Value:       d.Extraction.Model,
			Description: "Model override for extraction (empty = provider model)",
		},
		{
			Key:         "extraction.max_tokens",
			Value:       d.Extraction.MaxTokens,
			Description: "Maximum output tokens (0 = provider default)",
		},
		{
			Key:         "extraction.timeout",
			Value:       d.Extraction.Timeout,
			Description: "Deadline for one model call, e.g. 30s (0 = none)",
		},
		{
			Key:         "extraction.validation",
			Value:       d.Extraction.Validation,
			Description: "Schema check of extracted reports: off, warn or strict",
		},
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "HTTP listen host",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "HTTP listen port",
		},
		{
			Key:         "server.cors_origins",
			Value:       d.Server.CORSOrigins,
			Description: "Allowed CORS origins (* = any)",
		},
		{
			Key:         "log.level",
			Value:       d.Log.Level,
			Description: "Log level: debug, info, warn or error",
		},
		{
			Key:         "log.format",
			Value:       d.Log.Format,
			Description: "Log format: text or json",
		},
		{
			Key:         "metrics.window",
			Value:       d.Metrics.Window,
			Description: "Extraction calls kept for /metrics (0 = off, read at startup)",
		},
	}

	names := make([]string, 0, len(d.LLMProviders))
	for name := range d.LLMProviders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := d.LLMProviders[name]
		prefix := "llm_providers." + name + "."
		entries = append(entries,
			Entry{Key: prefix + "type", Value: p.Type, Description: "LLM provider type for " + name},
			Entry{Key: prefix + "model", Value: p.Model, Description: "Default model for " + name},
			Entry{Key: prefix + "api_key", Value: p.APIKey, Description: "API key for " + name + " (uses environment variable)"},
			Entry{Key: prefix + "enabled", Value: p.Enabled, Description: "Whether the " + name + " provider is enabled"},
		)
	}

	return entries
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}
