package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/adapters/driving/mcp"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose mailbrain to MCP clients",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run a Model Context Protocol server over the mail index.

Tools:     ask, get_execution, list_executions, search_messages, scan_threats
Resources: mailbrain://index/stats
           mailbrain://index/analytics
           mailbrain://messages/{id}
           mailbrain://executions/{id}

The server speaks JSON-RPC on stdio unless --http or --port is given, in
which case it serves streamable HTTP. A desktop client entry looks like:

  "mailbrain": {"command": "/path/to/mailbrain", "args": ["mcp", "serve"]}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().String("http", "", "serve streamable HTTP on this address instead of stdio")
	mcpServeCmd.Flags().IntP("port", "p", 0, "shorthand for --http :PORT")
	mcpServeCmd.MarkFlagsMutuallyExclusive("http", "port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpAddr returns the HTTP listen address, or "" for stdio.
func mcpAddr(cmd *cobra.Command) (string, error) {
	addr, err := cmd.Flags().GetString("http")
	if err != nil {
		return "", err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return "", err
	}
	switch {
	case port < 0 || port > 65535:
		return "", fmt.Errorf("invalid port %d", port)
	case port > 0:
		return ":" + strconv.Itoa(port), nil
	}
	return addr, nil
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	addr, err := mcpAddr(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.EnsureIndex(ctx); err != nil {
		logger.Warn("Initial index build failed: %v", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Workflow:    rt.Workflow,
		Index:       rt.Index,
		Messages:    rt.Index,
		Insights:    rt.Insights,
		DefaultTopK: rt.Settings.Pipeline.DefaultTopK,
	}, version)
	if err != nil {
		return err
	}

	return runBackground(ctx, rt, func(ctx context.Context) error {
		if addr == "" {
			return server.Run(ctx)
		}
		// stdout belongs to the protocol in stdio mode, so status goes to stderr.
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", addr)
		return server.RunHTTP(ctx, addr)
	})
}
