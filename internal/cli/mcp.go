package cli

import (
	"log/slog"

	"github.com/raphaelgruber/voc2ticket/internal/server"
	"github.com/raphaelgruber/voc2ticket/internal/tools"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the drafting tools to an MCP client over stdio",
	Long: `Run an MCP server on stdin/stdout so an assistant client can draft,
confirm and analyze tickets with the same sessions, templates and
reference corpora as the chat command.

Logs go to stderr and the log file; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()
		srv := server.New(Version, logger)
		tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{App: application, Logger: logger})
		logger.Info("server ready, awaiting connections", "templates", application.Templates.Len())

		ctx := cmd.Context()
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
