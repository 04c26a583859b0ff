package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/guardian/internal/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the Guardian engine as an MCP Server.
This allows AI agents (like Claude Desktop) to submit queries and review mutations as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("port") {
			port = cfg.Server.MCPPort
		}
		logger := newLogger(cfg)
		slog.SetDefault(logger)

		engine, cleanup, err := buildEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(engine)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			slog.Info("Starting Guardian MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				return err
			}
		case "sse":
			slog.Info("Starting Guardian MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				// Ignore server closed error if it was caused by context cancellation
				if err != http.ErrServerClosed {
					return err
				}
			}
			slog.Info("MCP Server stopped gracefully")
		default:
			return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", transport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 0, "Port to listen on (only for SSE, overrides config)")
}
