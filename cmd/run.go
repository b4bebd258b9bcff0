package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/homemade/capture2sailthru/sync"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [payload.json]",
	Short: "Sync one webhook payload read from a file or stdin",
	Long: `Runs a single sync exactly as the webhook server would and prints the outcome.
The payload is a JSON array of {"uuid": "..."} entries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logg, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logg.Sync()

		var body []byte
		if len(args) == 1 {
			body, err = os.ReadFile(args[0])
		} else {
			body, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
		payload, err := sync.ParseWebhookPayload(body)
		if err != nil {
			return err
		}

		syncer, err := sync.NewSyncerFromConfig(cfg, logg)
		if err != nil {
			return fmt.Errorf("failed to create syncer: %w", err)
		}
		outcome := syncer.Sync(cmd.Context(), payload)
		fmt.Fprintln(cmd.OutOrStdout(), outcome.String())
		if outcome != sync.Done {
			return fmt.Errorf("sync did not complete: %s", outcome)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
}
