package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/concierge/internal/app"
	"github.com/aiox-platform/concierge/internal/config"
	"github.com/aiox-platform/concierge/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "concierge",
	Short:   "Conversational concierge for food orders, stock quotes and football news",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		// stdout carries replies and the MCP transport
		logging.SetupTo(os.Stderr, level, "text")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("db", "", "DuckDB file for episodes (default from EPISODE_DUCKDB_PATH)")
}

// localStack builds an engine on a DuckDB episode store, without Redis,
// Postgres or NATS.
func localStack(ctx context.Context, cmd *cobra.Command) (*app.Stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.Episode.DuckDBPath = path
	}
	cfg.Episode.Backend = "duckdb"
	cfg.Cache.Enabled = false

	return app.Build(ctx, cfg, app.Options{})
}
