package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/pcr/internal/providers"
	"github.com/jackzampolin/pcr/internal/report"
)

// EnvPrefix is the prefix for environment overrides, e.g. PCR_SERVER_PORT.
const EnvPrefix = "PCR"

// ErrUnknownKey is returned when a config key has no value.
var ErrUnknownKey = errors.New("unknown config key")

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and ~/.pcr/config.yaml.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}

	// Environment variables with PCR_ prefix; nested keys use underscores.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pcr")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the config file that was read, or "" when running on defaults.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// Value returns the effective value of a single key (file, env or default).
func (cm *Manager) Value(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.v.IsSet(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return cm.v.Get(key), nil
}

// Entries returns every effective key with its value, sorted by key.
// Descriptions come from the default entries where one exists.
func (cm *Manager) Entries() []Entry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	keys := cm.v.AllKeys()
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e := Entry{Key: key, Value: cm.v.Get(key)}
		if def := GetDefault(key); def != nil {
			e.Description = def.Description
		}
		entries = append(entries, e)
	}
	return entries
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
// A change that fails to parse or validate keeps the previous config.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// LoadDotEnv loads KEY=VALUE pairs from each existing .env file in dirs.
// Variables already present in the environment are not overridden, and
// earlier dirs win over later ones. Returns the files that were loaded.
func LoadDotEnv(dirs ...string) ([]string, error) {
	var loaded []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if !report.ValidMode(c.Extraction.Validation) {
		errs = append(errs, fmt.Errorf("extraction.validation: %q is not off, warn or strict", c.Extraction.Validation))
	}
	if c.Extraction.Timeout < 0 {
		errs = append(errs, fmt.Errorf("extraction.timeout: must not be negative"))
	}
	if c.Extraction.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("extraction.max_tokens: must not be negative"))
	}
	if c.Metrics.Window < 0 {
		errs = append(errs, fmt.Errorf("metrics.window: must not be negative"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: %q is not text or json", c.Log.Format))
	}
	if name := c.Defaults.LLMProvider; name != "" {
		if _, ok := c.LLMProviders[name]; !ok {
			errs = append(errs, fmt.Errorf("defaults.llm_provider: %q is not in llm_providers", name))
		}
	}
	for name, p := range c.LLMProviders {
		switch p.Type {
		case providers.GeminiClientName, providers.OpenAIClientName, providers.MockClientName:
		default:
			errs = append(errs, fmt.Errorf("llm_providers.%s.type: unknown provider type %q", name, p.Type))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:         llm.Type,
			Model:        llm.Model,
			APIKey:       ResolveEnvVars(llm.APIKey),
			BaseURL:      ResolveEnvVars(llm.BaseURL),
			Enabled:      llm.Enabled,
			ResponseText: llm.ResponseText,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# pcr configuration
# API keys use ${ENV_VAR} syntax to reference environment variables.
# Set them in your shell or in a .env file next to this one:
#   GEMINI_API_KEY=xxx
# Any key can be overridden with PCR_<SECTION>_<KEY>, e.g. PCR_SERVER_PORT=9000.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
