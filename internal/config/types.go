package config

import "time"

// Config is the top-level longform configuration, corresponding to .longform.yml.
type Config struct {
	Title      string      `yaml:"title" koanf:"title"`
	ContentDir string      `yaml:"content_dir" koanf:"content_dir"`
	OutputDir  string      `yaml:"output_dir" koanf:"output_dir"`
	DataDir    string      `yaml:"data_dir" koanf:"data_dir"`
	Port       int         `yaml:"port" koanf:"port"`
	Include    []string    `yaml:"include" koanf:"include"`
	Exclude    []string    `yaml:"exclude" koanf:"exclude"`
	Embeds     EmbedConfig `yaml:"embeds" koanf:"embeds"`
}

// EmbedConfig controls the lazy embed loader.
//
// Durations are stored as millisecond integers so the YAML stays plain
// numbers; use the accessor methods for time.Duration values.
type EmbedConfig struct {
	Disabled          bool    `yaml:"disabled" koanf:"disabled"`
	ScriptURL         string  `yaml:"script_url" koanf:"script_url"`
	RenderURL         string  `yaml:"render_url" koanf:"render_url"`
	MaxRetries        int     `yaml:"max_retries" koanf:"max_retries"`
	RetryDelayMS      int     `yaml:"retry_delay_ms" koanf:"retry_delay_ms"`
	LookaheadMarginPx int     `yaml:"lookahead_margin_px" koanf:"lookahead_margin_px"`
	VisibleThreshold  float64 `yaml:"visible_threshold" koanf:"visible_threshold"`
	SettleDelayMS     int     `yaml:"settle_delay_ms" koanf:"settle_delay_ms"`
	HookDelayMS       int     `yaml:"hook_delay_ms" koanf:"hook_delay_ms"`
}

// RetryDelay returns the base delay between retry attempts.
func (e EmbedConfig) RetryDelay() time.Duration {
	return time.Duration(e.RetryDelayMS) * time.Millisecond
}

// SettleDelay returns the pause after the page load event before the
// eager visibility sweep runs.
func (e EmbedConfig) SettleDelay() time.Duration {
	return time.Duration(e.SettleDelayMS) * time.Millisecond
}

// HookDelay returns the pause between attaching an embed fragment and
// invoking the provider post-processing hook.
func (e EmbedConfig) HookDelay() time.Duration {
	return time.Duration(e.HookDelayMS) * time.Millisecond
}
