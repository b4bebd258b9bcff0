package cmd

import (
	"fmt"
	"os"

	"github.com/homemade/capture2sailthru/logger"
	"github.com/homemade/capture2sailthru/sync"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFileFlag    string
	configFileFlag string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "capture2sailthru",
	Short: "Janrain Capture to Sailthru sync service",
	Long: `capture2sailthru receives webhooks naming Janrain Capture records and upserts
the matching user profiles into Sailthru.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format at debug level gives readable timestamps for CLI errors
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "dotenv file loaded into the environment if it exists")
	RootCmd.PersistentFlags().StringVar(&configFileFlag, "config", "", "YAML file overriding the default settings")
}

// loadConfig loads the dotenv file, if present, then the configuration.
// Variables already set in the environment win over the dotenv file.
func loadConfig() (sync.Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Load(envFileFlag)

	var opts []sync.ConfigOption
	if configFileFlag != "" {
		file, err := sync.MustFindMappingFile(configFileFlag)
		if err != nil {
			return sync.Config{}, fmt.Errorf("failed to read config file %w", err)
		}
		opts = append(opts, sync.ConfigWithMappingFile(file))
	}
	return sync.LoadConfig(opts...)
}

// newLogger creates the application logger from the configuration.
func newLogger(cfg sync.Config) (*zap.Logger, error) {
	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	return logger.New(&logger.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxBytes:   cfg.Log.MaxBytes,
		MaxBackups: cfg.Log.Backups,
	})
}
