package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/logging"
	"github.com/spf13/cobra"
)

var (
	sendEmail    string
	sendNoReveal bool
)

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send one message and print the reply",
	Long: `Send a single message to the agent and print its reply.

The reply is revealed character by character unless --no-reveal is set or
reveal_delay is 0. Press Ctrl+C to skip the animation. The exit status is
non-zero when the agent could not be reached or answered with an error.

Examples:
  agentchat send --email you@example.com "What are your opening hours?"
  agentchat send --email you@example.com --no-reveal hello`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendEmail, "email", "", "Your email (required unless require_email = false)")
	sendCmd.Flags().BoolVar(&sendNoReveal, "no-reveal", false, "Print the reply at once")
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp(logging.Console)
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.newSession()
	if session.EmailGate() {
		if err := session.SubmitEmail(sendEmail); err != nil {
			return fmt.Errorf("--email %q: %w", sendEmail, err)
		}
	} else if sendEmail != "" {
		a.logger.Warn().Msg("require_email is false, ignoring --email")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	msg, turnErr := session.SendMessage(ctx, strings.Join(args, " "))
	if chat.KindOf(turnErr) == chat.KindValidation {
		return turnErr
	}

	delay := a.cfg.RevealDelay
	if sendNoReveal {
		delay = 0
	}
	out := cmd.OutOrStdout()
	if _, err := chat.Reveal(ctx, out, msg.Content, delay); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	_, _ = fmt.Fprintln(out)

	if turnErr != nil {
		return fmt.Errorf("agent call failed: %w", turnErr)
	}
	return nil
}
