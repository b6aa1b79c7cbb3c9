package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// detectContentDir checks the working directory for conventional story
// content locations.
func detectContentDir() string {
	for _, dir := range []string{"story", "content", "chapters"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "story"
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .longform.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to longform! Let's configure your story.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Story title.
	titlePrompt := promptui.Prompt{
		Label:   "Story title",
		Default: cfg.Title,
	}
	title, err := titlePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}

	// 2. Content directory.
	contentPrompt := promptui.Prompt{
		Label:   "Directory containing chapter markdown",
		Default: detectContentDir(),
	}
	contentDir, err := contentPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}

	// 3. Server port.
	portPrompt := promptui.Prompt{
		Label:   "Preview server port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 4. Embedded social posts.
	embedPrompt := promptui.Select{
		Label: "Third-party embeds",
		Items: []string{
			"enabled  — lazy-load social posts referenced in chapters",
			"disabled — render placeholders as plain links",
		},
	}
	embedIdx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embeds: %w", err)
	}

	cfg.Title = strings.TrimSpace(title)
	cfg.ContentDir = strings.TrimSpace(contentDir)
	cfg.Port = port
	cfg.Embeds.Disabled = embedIdx == 1

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(".longform.yml"); err != nil {
		return nil, err
	}
	fmt.Println("\nWrote .longform.yml")

	return cfg, nil
}
