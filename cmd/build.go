package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/longformhq/longform/internal/progress"
	"github.com/longformhq/longform/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a self-contained static site",
	Long: `Renders the story into a static site under the output directory.
Embeds load eagerly on the client since no server coordinates them.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "override output directory")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	st, err := loadStory(cfg)
	if err != nil {
		return err
	}

	opts := site.PageOptions{
		Title:         cfg.Title,
		EmbedsEnabled: !cfg.Embeds.Disabled,
		Version:       Version,
		ScriptURL:     cfg.Embeds.ScriptURL,
	}
	written, err := site.Build(st, outputDir, opts, progress.NewReporter())
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	fmt.Printf("Static site built: %s (%d files)\n", outputDir, written)
	return nil
}
