// Package main is poctl, the operator CLI for PO Approvals.
//
// Import Path: github.com/ppockey/po-approvals/cmd/poctl
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "poctl",
		Short:         "Operate the PO approval pipeline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(outboxCmd())
	rootCmd.AddCommand(legacyCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// loadConfig reads the server configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
