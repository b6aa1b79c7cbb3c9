package config

// DefaultExcludes are glob patterns excluded from chapter discovery by default.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"drafts/**",
	"**/_*.md",
	"README.md",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Title:      "Untitled Story",
		ContentDir: "story",
		OutputDir:  "public",
		DataDir:    ".longform",
		Port:       8173,
		Include:    []string{"**/*.md"},
		Exclude:    DefaultExcludes,
		Embeds: EmbedConfig{
			ScriptURL:         "https://platform.twitter.com/widgets.js",
			RenderURL:         "https://publish.twitter.com/oembed",
			MaxRetries:        3,
			RetryDelayMS:      1000,
			LookaheadMarginPx: 200,
			VisibleThreshold:  0.01,
			SettleDelayMS:     500,
			HookDelayMS:       100,
		},
	}
}
