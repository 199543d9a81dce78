package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// validProviderNames lists the LLM provider names the drafting layer knows
// how to construct.
var validProviderNames = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"ollama":    true,
	"gemini":    true,
	"deepseek":  true,
	"mistral":   true,
	"groq":      true,
	"llamacpp":  true,
	"llamafile": true,
}

// Load reads and validates a configuration file from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes and validates YAML configuration from r. Unknown
// fields are rejected so typos surface at startup instead of silently
// falling back to defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors and applies defaults for
// optional fields. Hard failures are joined into the returned error; issues
// the service can run without are only logged.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if !c.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level: unknown level %q", c.Server.LogLevel))
	}

	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if c.Discord.OwnerID == "" {
		errs = append(errs, errors.New("discord.owner_id is required"))
	}

	if c.Drafting.Provider.Name == "" {
		c.Drafting.Provider.Name = "openai"
	}
	if !validProviderNames[c.Drafting.Provider.Name] {
		slog.Warn("unknown drafting provider name, construction may fail",
			"provider", c.Drafting.Provider.Name)
	}

	if c.Store.PostgresDSN == "" {
		errs = append(errs, errors.New("store.postgres_dsn is required"))
	}

	if c.TLDV.APIKey == "" {
		slog.Warn("tldv.api_key not set, transcript polling disabled")
	}

	if c.Schedule.PollInterval == 0 {
		c.Schedule.PollInterval = Duration(30 * time.Minute)
	} else if c.Schedule.PollInterval.Std() < time.Minute {
		errs = append(errs, fmt.Errorf("schedule.poll_interval: %v is below the 1m minimum", c.Schedule.PollInterval.Std()))
	}
	if c.Schedule.MiningWindowDays < 0 {
		errs = append(errs, fmt.Errorf("schedule.mining_window_days: must not be negative, got %d", c.Schedule.MiningWindowDays))
	}
	if c.Schedule.MiningWindowDays == 0 {
		c.Schedule.MiningWindowDays = 7
	}

	return errors.Join(errs...)
}

// MiningWindow returns the mining window as a duration.
func (c *Config) MiningWindow() time.Duration {
	return time.Duration(c.Schedule.MiningWindowDays) * 24 * time.Hour
}
