package cli

import (
	"fmt"

	"github.com/neilberkman/agentchat/cmd/agentchat/mcp"
	"github.com/neilberkman/agentchat/internal/core/logging"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server exposing the chat as tools",
	Long: `Start an MCP (Model Context Protocol) server on stdio so another
assistant can talk to the agent on a user's behalf.

Tools: send_message, load_history and, when the archive is enabled,
list_sessions and get_transcript. Each email gets its own conversation.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "agentchat": {
        "command": "agentchat",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, logs go to stderr
	a, err := newApp(logging.Console)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := mcp.Options{
		NewSession: a.newSession,
		Archive:    a.archive,
		Logger:     a.logger,
		Version:    versionInfo,
	}
	if err := mcp.StartServer(opts); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
