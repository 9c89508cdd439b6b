package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/search"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(appConfig, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.InitSchema(); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("Schema is up to date")
		return nil
	},
}

var (
	reconcileDryRun bool
	reconcileGrace  time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one extension reconciliation sweep and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(appConfig, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		meili := appConfig.Search.Meilisearch
		svc := cleanup.NewService(store, search.NewSearchClient(meili.Host, meili.APIKey, meili.Index), logger)

		opts := cleanup.DefaultConfig()
		if appConfig.Reconcile.GraceMinutes > 0 {
			opts.Grace = appConfig.Reconcile.Grace()
		}
		if appConfig.Reconcile.MaxBatch > 0 {
			opts.MaxBatch = appConfig.Reconcile.MaxBatch
		}
		if cmd.Flags().Changed("grace") {
			opts.Grace = reconcileGrace
		}
		opts.DryRun = reconcileDryRun || appConfig.Reconcile.DryRun

		result, err := svc.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "only report what would change")
	reconcileCmd.Flags().DurationVar(&reconcileGrace, "grace", 30*time.Minute, "minimum age of a pending record")
}
