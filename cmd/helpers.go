package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/longformhq/longform/internal/cache"
	"github.com/longformhq/longform/internal/config"
	"github.com/longformhq/longform/internal/story"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `longform init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadStory assembles the story from the configured content directory.
func loadStory(cfg *config.Config) (*story.Story, error) {
	st, err := story.Load(cfg.ContentDir, cfg.Title, cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("loading story: %w", err)
	}
	if verbose {
		log.Printf("loaded %d chapters, %d embed placeholders", len(st.Chapters), len(st.Placeholders))
	}
	return st, nil
}

// openStore opens the embed cache database under the data directory.
// Returns nil (caching disabled) if the directory cannot be created.
func openStore(cfg *config.Config) *cache.Store {
	if cfg.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create data dir %s: %v\n", cfg.DataDir, err)
		return nil
	}
	store, err := cache.Open(filepath.Join(cfg.DataDir, "embeds.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open embed cache: %v\n", err)
		return nil
	}
	return store
}
