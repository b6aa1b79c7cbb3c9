package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LONGFORM_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: LONGFORM_PORT -> port,
	// LONGFORM_EMBEDS_SCRIPT_URL -> embeds.script_url, etc.
	if err := k.Load(env.Provider("LONGFORM_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LONGFORM_"))
		if rest, ok := strings.CutPrefix(key, "embeds_"); ok {
			return "embeds." + rest
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}

	e := c.Embeds
	if e.Disabled {
		return nil
	}
	if e.ScriptURL == "" {
		return fmt.Errorf("embeds.script_url is required unless embeds are disabled")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("embeds.max_retries must be non-negative")
	}
	if e.RetryDelayMS < 0 {
		return fmt.Errorf("embeds.retry_delay_ms must be non-negative")
	}
	if e.VisibleThreshold < 0 || e.VisibleThreshold > 1 {
		return fmt.Errorf("embeds.visible_threshold must be in [0, 1], got %g", e.VisibleThreshold)
	}
	if e.LookaheadMarginPx < 0 {
		return fmt.Errorf("embeds.lookahead_margin_px must be non-negative")
	}
	return nil
}
