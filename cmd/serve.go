package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/homemade/capture2sailthru/server"
	"github.com/homemade/capture2sailthru/sync"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  `Starts the HTTP server accepting sync webhooks on POST /sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// 2. Initialize Logger
		logg, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)
		for _, line := range cfg.Environment() {
			logg.Debug("config", zap.String("setting", line))
		}

		// 3. Initialize Syncer
		syncer, err := sync.NewSyncerFromConfig(cfg, logg)
		if err != nil {
			return fmt.Errorf("failed to create syncer: %w", err)
		}

		// 4. Initialize Fiber App
		app := server.New(server.NewHandler(syncer, logg), logg)

		// 5. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Port), zap.String("identity_mode", string(cfg.IdentityMode)))
			if err := app.Listen(":" + cfg.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
