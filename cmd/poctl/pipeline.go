package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppockey/po-approvals/internal/app/modules"
	"github.com/ppockey/po-approvals/internal/infrastructure"
	"github.com/ppockey/po-approvals/internal/notification"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/usecase"
)

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox maintenance",
	}

	var batchSize int
	run := &cobra.Command{
		Use:   "run",
		Short: "Process one batch of pending outbox events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if batchSize > 0 {
				cfg.Outbox.BatchSize = batchSize
			}

			infra, err := modules.NewInfrastructure(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer infra.Close()

			// Notifications run inline so they finish before the pools stop.
			n := notification.NewDirectoryNotifier(infra.Store, notification.LogSender{})
			res, err := usecase.NewOutboxProcessor(infra.Store, n, usecase.OutboxConfig{
				BatchSize:   cfg.Outbox.BatchSize,
				MaxAttempts: cfg.Outbox.MaxAttempts,
			}).RunBatch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: candidates=%d processed=%d chains_created=%d failed=%d skipped=%d\n",
				res.RunID, res.Candidates, res.Processed, res.ChainsCreated, res.Failed, res.Skipped)
			return nil
		},
	}
	run.Flags().IntVar(&batchSize, "batch-size", 0, "override outbox.batch_size (1-50)")

	cmd.AddCommand(run)
	return cmd
}

func legacyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "PRMS integration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "extract",
		Short: "Claim waiting POs in PRMS and stage them locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if !cfg.Legacy.Enabled {
				return fmt.Errorf("legacy.enabled is false")
			}

			infra, err := modules.NewInfrastructure(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer infra.Close()

			res, err := usecase.NewLegacyIngestor(infra.LegacyReader(), infra.Store).RunPass(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: claimed=%d enqueued=%d failed=%d\n",
				res.RunID, res.Claimed, res.Enqueued, res.Failed)
			return err
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and River migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := infrastructure.NewDatabaseClients(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
