package cmd

import (
	"fmt"

	"github.com/homemade/capture2sailthru/sync"
	"github.com/spf13/cobra"
)

// fieldsCmd represents the fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Print the configured attribute mappings as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		specs, err := sync.ParseAttributes(cfg.Attributes, cfg.SnakeCaseVars)
		if err != nil {
			return err
		}
		csv, err := sync.GenerateFieldDocumentation(cfg.IdentityMode, specs).FormatCSV()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), csv)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fieldsCmd)
}
