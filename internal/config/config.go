package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LLMConfig holds all LLM-related configuration
type LLMConfig struct {
	// Core LLM settings
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // ollama, bedrock, custom
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"` // For AWS Bedrock
	Timeout  string `json:"timeout"`

	// Template file path (relative to config dir or absolute)
	ReplyTemplate string `json:"reply_template"`

	// Inline prompt override (optional - takes precedence over the file)
	ReplyPrompt string `json:"reply_prompt,omitempty"`

	// Maximum characters of extracted message text fed to the prompt
	MaxContextChars int `json:"max_context_chars"`

	// CacheDrafts reuses a generated draft while the conversation text is
	// unchanged instead of calling the provider again
	CacheDrafts bool `json:"cache_drafts"`
}

// EngineConfig tunes the reconciliation engine's trigger sources.
type EngineConfig struct {
	// URLPollMs is the location poll period.
	URLPollMs int `json:"url_poll_ms"`
	// MutationThrottleMs bounds reconciliations under DOM churn bursts.
	MutationThrottleMs int `json:"mutation_throttle_ms"`
	// NavRetryDelaysMs are the reconciliation delays scheduled after a URL
	// change or history navigation, to ride out the host page's own
	// asynchronous re-render.
	NavRetryDelaysMs []int `json:"nav_retry_delays_ms"`
	// StartupRetries / StartupRetryMs bound the unconditional periodic
	// retry that recovers from missed signals.
	StartupRetries int `json:"startup_retries"`
	StartupRetryMs int `json:"startup_retry_ms"`
}

// Config holds all configuration for mailwing
type Config struct {
	// LLM configuration (unified)
	LLM LLMConfig `json:"llm"`

	// Engine trigger tuning
	Engine EngineConfig `json:"engine"`

	// SelectorPack is an optional YAML file overriding the compiled-in
	// selector lists.
	SelectorPack string `json:"selector_pack"`

	// Database holding per-thread preferences and the audit log
	DBPath string `json:"db_path"`

	// Logging
	LogFile string `json:"log_file"`
}

// DefaultConfig returns a configuration with sane defaults
func DefaultConfig() *Config {
	return &Config{
		LLM:    DefaultLLMConfig(),
		Engine: DefaultEngineConfig(),
		DBPath: DefaultDBPath(),
	}
}

// DefaultLLMConfig returns default LLM settings
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Enabled:         true,
		Provider:        "ollama",
		Model:           "llama3",
		Endpoint:        "http://localhost:11434/api/generate",
		Timeout:         "40s",
		MaxContextChars: 8000,
		CacheDrafts:     true,
	}
}

// DefaultEngineConfig returns default trigger tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		URLPollMs:          500,
		MutationThrottleMs: 300,
		NavRetryDelaysMs:   []int{100, 500, 1000, 2000},
		StartupRetries:     12,
		StartupRetryMs:     750,
	}
}

// LoadConfig loads configuration from a JSON file over the defaults
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailwing", "config.json")
}

// DefaultDBPath returns the default database file path
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailwing", "mailwing.db")
}

// DefaultLogDir returns the default log directory path
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailwing")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetLLMTimeout returns parsed timeout for LLM
func (c *Config) GetLLMTimeout() time.Duration {
	if c.LLM.Timeout != "" {
		if d, err := time.ParseDuration(c.LLM.Timeout); err == nil {
			return d
		}
	}
	return 20 * time.Second
}

// URLPollInterval returns the location poll period.
func (c *EngineConfig) URLPollInterval() time.Duration {
	return msOrDefault(c.URLPollMs, 500*time.Millisecond)
}

// MutationThrottle returns the minimum spacing of mutation-driven passes.
func (c *EngineConfig) MutationThrottle() time.Duration {
	return msOrDefault(c.MutationThrottleMs, 300*time.Millisecond)
}

// NavRetryDelays returns the post-navigation reconciliation schedule.
func (c *EngineConfig) NavRetryDelays() []time.Duration {
	if len(c.NavRetryDelaysMs) == 0 {
		return []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second}
	}
	out := make([]time.Duration, len(c.NavRetryDelaysMs))
	for i, ms := range c.NavRetryDelaysMs {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// StartupRetryInterval returns the bounded-retry period.
func (c *EngineConfig) StartupRetryInterval() time.Duration {
	return msOrDefault(c.StartupRetryMs, 750*time.Millisecond)
}

func msOrDefault(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadTemplate loads a template with proper priority: file first, then inline, then fallback
func LoadTemplate(templatePath, inlinePrompt, fallbackPrompt string) string {
	// First priority: Try to load from template file if path is specified
	if strings.TrimSpace(templatePath) != "" {
		// Make path relative to config directory if not absolute
		var fullPath string
		if filepath.IsAbs(templatePath) {
			fullPath = templatePath
		} else {
			configDir := filepath.Dir(DefaultConfigPath())
			fullPath = filepath.Join(configDir, templatePath)
		}

		if content, err := os.ReadFile(fullPath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	// Second priority: Use inline prompt if provided
	if strings.TrimSpace(inlinePrompt) != "" {
		return inlinePrompt
	}

	// Final fallback: Use provided fallback prompt
	return fallbackPrompt
}

// GetReplyPrompt returns the reply prompt, loading from template file if needed
func (c *LLMConfig) GetReplyPrompt() string {
	fallback := "Write a professional and friendly reply to the following email. Keep the same language as the input. Return only the reply text.\n\n{{body}}"
	return LoadTemplate(c.ReplyTemplate, c.ReplyPrompt, fallback)
}
