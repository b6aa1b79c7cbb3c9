package cmd

import (
	"github.com/spf13/cobra"

	"github.com/longformhq/longform/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize longform configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure longform for your story and generates a .longform.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
