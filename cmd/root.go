package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "longform",
	Short: "Scroll-driven longform storytelling sites from markdown",
	Long: `Longform assembles markdown chapters into a single scroll-driven
story page with lazy-loaded social embeds. Run it as a local server
for live reading, or build a self-contained static site.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".longform.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
