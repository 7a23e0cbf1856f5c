package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/logging"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	historyEmail string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print your conversation history from the agent",
	Long: `Fetch your previous conversation from the agent's history endpoint.

Only the most recent history_limit records are shown. Records without text
content are skipped.

Examples:
  agentchat history --email you@example.com
  agentchat history --email you@example.com --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyEmail, "email", "", "Email whose history to load")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print messages as JSON")
	_ = historyCmd.MarkFlagRequired("email")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(logging.Console)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.HistoryURL == "" {
		return fmt.Errorf("history_url is not configured")
	}

	if !chat.ValidateEmail(historyEmail) {
		return fmt.Errorf("--email %q: %w", historyEmail, chat.ErrInvalidEmail)
	}

	messages, err := a.newClient().History(cmd.Context(), strings.TrimSpace(historyEmail))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(messages)
	}

	printHistory(out, messages)
	return nil
}

func printHistory(w io.Writer, messages []models.Message) {
	if len(messages) == 0 {
		_, _ = fmt.Fprintln(w, "No history found.")
		return
	}

	for _, m := range messages {
		label := "You"
		if m.Role == models.RoleAssistant {
			label = "Agent"
		}
		if m.CreatedAt.IsZero() {
			_, _ = fmt.Fprintf(w, "%s:\n", label)
		} else {
			_, _ = fmt.Fprintf(w, "%s (%s):\n", label, humanize.Time(m.CreatedAt))
		}
		for _, line := range strings.Split(m.Content, "\n") {
			_, _ = fmt.Fprintf(w, "    %s\n", line)
		}
		_, _ = fmt.Fprintln(w)
	}
}
