package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/concierge/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the concierge as an MCP tool over stdio",
	Long: `Starts a Model Context Protocol server on standard input and output with a
single "converse" tool taking prompt, actor_id and session_id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// keep stray log output off the JSON-RPC stream
		log.SetOutput(os.Stderr)

		stack, err := localStack(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		slog.Info("starting MCP server (stdio)")
		return mcpserver.New(stack.Engine, version).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
