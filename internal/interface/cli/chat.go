package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/agentchat/internal/core/logging"
	"github.com/neilberkman/agentchat/internal/interface/tui"
	"github.com/spf13/cobra"
)

var chatEmail string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open the interactive chat TUI.

You are asked for your email first (unless require_email = false in the
config). Your previous conversation is then loaded from the history
endpoint and each reply is revealed as it is displayed.

Logs go to the file configured as log.file while the TUI is running.

Examples:
  agentchat
  agentchat chat --email you@example.com
  agentchat chat --agent-url http://localhost:8000/bot --history-url http://localhost:8000/history`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatEmail, "email", "", "Skip the email prompt with this address")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(logging.File)
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.newSession()
	if chatEmail != "" && session.EmailGate() {
		if err := session.SubmitEmail(chatEmail); err != nil {
			return fmt.Errorf("cannot use %q: %w", chatEmail, err)
		}
	}

	a.logger.Info().Str("session_id", session.ID()).Str("agent_url", a.cfg.AgentURL).Msg("starting chat")

	model := tui.New(session, tui.Options{
		RevealDelay:    a.cfg.RevealDelay,
		HistoryEnabled: a.cfg.HistoryURL != "",
		Logger:         a.logger,
	})
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
