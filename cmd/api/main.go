package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/orms-api/internal/config"
	"github.com/jwalitptl/orms-api/pkg/logger"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "orms-api",
		Short:        "ORMS clinic operations API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: config.yaml in ., ./config or /app/config)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the global logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	return cfg, log, nil
}
