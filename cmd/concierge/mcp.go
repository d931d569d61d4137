package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/cli"
	"github.com/aretw0/concierge/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the assistant as MCP tools so AI agents can hold conversations with it.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.WithInterrupt(cmd.Context())
		defer sigCtx.Stop()

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		app, err := loadApp(sigCtx, cmd, cli.WithLogOutput(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Assistant.Manager(), app.Assistant.Catalog(), concierge.Version, app.Logger)
		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			app.Logger.Info("Starting MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			app.Logger.Info("Starting MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil {
				return err
			}
			app.Logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
