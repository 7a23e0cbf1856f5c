package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/agentchat/internal/core/db"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	sessionsLimit int
	sessionsEmail string
	sessionsSince string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived chat sessions",
	Long: `List chat sessions recorded in the local transcript archive, most
recently active first.

--since accepts natural language ("yesterday", "last week", "3 days ago")
or a date (2025-01-31).

Examples:
  agentchat sessions
  agentchat sessions --email you@example.com
  agentchat sessions --since "last week" --limit 5`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to display")
	sessionsCmd.Flags().StringVar(&sessionsEmail, "email", "", "Only sessions for this email")
	sessionsCmd.Flags().StringVar(&sessionsSince, "since", "", "Only sessions active since this date")
}

func runSessions(cmd *cobra.Command, args []string) error {
	filter := db.SessionFilter{Email: sessionsEmail, Limit: sessionsLimit}
	if sessionsSince != "" {
		since, ok := parseDate(sessionsSince, time.Now())
		if !ok {
			return fmt.Errorf("cannot parse --since %q", sessionsSince)
		}
		filter.Since = since
	}

	database, err := openArchive()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	sessions, err := database.ListSessions(filter)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	printSessions(cmd.OutOrStdout(), sessions)
	return nil
}

func printSessions(w io.Writer, sessions []models.Session) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "No sessions found. Start one with 'agentchat'.")
		return
	}

	_, _ = fmt.Fprintf(w, "Showing %d session(s)\n\n", len(sessions))
	for i, s := range sessions {
		_, _ = fmt.Fprintf(w, "[%d] %s\n", i+1, s.SessionID)
		if s.Email != "" {
			_, _ = fmt.Fprintf(w, "    Email: %s\n", s.Email)
		}
		if s.Preview != "" {
			_, _ = fmt.Fprintf(w, "    First: %s\n", truncateText(s.Preview, 80))
		}
		_, _ = fmt.Fprintf(w, "    Messages: %d\n", s.MessageCount)
		if !s.UpdatedAt.IsZero() {
			_, _ = fmt.Fprintf(w, "    Updated: %s\n", humanize.Time(s.UpdatedAt))
		}
		_, _ = fmt.Fprintln(w)
	}
}

// parseDate accepts a few fixed layouts first, then natural language
func parseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, true
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	if result, err := w.Parse(s, now); err == nil && result != nil {
		return result.Time, true
	}
	return time.Time{}, false
}

// truncateText flattens whitespace and cuts at a word boundary
func truncateText(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	truncated := string(runes[:maxLen])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 && lastSpace > len(truncated)-20 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
