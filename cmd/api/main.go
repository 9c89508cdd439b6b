// Package main runs the listing portal API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"listing-portal/internal/config"
	"listing-portal/internal/logging"
)

var (
	// configFile is set by the --config flag
	configFile string

	appConfig *config.Config
	logger    *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "listing-portal",
	Short: "Property listing API",
	Long: `Serves the property listing API: subtype listing submission, image
ingestion, inquiries and the admin reconciliation endpoints.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: $CONFIG_PATH or config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// loadConfig reads .env, the YAML file and the environment, then builds the
// logger every command uses
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load() // optionally load environment file

	path := configFile
	if path == "" {
		path = getEnv("CONFIG_PATH", "config/config.yaml")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appConfig = cfg
	logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithField("path", path).Debug("Configuration loaded")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
