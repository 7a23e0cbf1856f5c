package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/agentchat/internal/core/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show transcript archive statistics",
	Long: `Display statistics about the local transcript archive.

Shows session and message counts, distinct emails, the date range and the
database size.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	printStats(cmd.OutOrStdout(), database.Path(), stats)
	return nil
}

func printStats(w io.Writer, path string, stats *db.Stats) {
	_, _ = fmt.Fprintln(w, "Archive Statistics")
	_, _ = fmt.Fprintln(w, "==================")
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Total Sessions:    %d\n", stats.TotalSessions)
	_, _ = fmt.Fprintf(w, "Total Messages:    %d (%d from you)\n", stats.TotalMessages, stats.UserMessages)
	_, _ = fmt.Fprintf(w, "Emails:            %d\n", stats.Identities)
	_, _ = fmt.Fprintln(w)

	if !stats.OldestSession.IsZero() {
		_, _ = fmt.Fprintf(w, "Oldest Session:    %s\n", stats.OldestSession.Local().Format("Jan 2, 2006 3:04 PM"))
	}
	if !stats.NewestSession.IsZero() {
		_, _ = fmt.Fprintf(w, "Newest Session:    %s (%s)\n",
			stats.NewestSession.Local().Format("Jan 2, 2006 3:04 PM"), humanize.Time(stats.NewestSession))
	}
	if stats.MostActiveEmail != "" {
		_, _ = fmt.Fprintf(w, "Most Active Email: %s (%d sessions)\n", stats.MostActiveEmail, stats.MostActiveEmailCount)
	}
	if stats.TotalSessions > 0 {
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "Database Location: %s\n", path)
	_, _ = fmt.Fprintf(w, "Database Size:     %s\n", humanize.Bytes(uint64(stats.SizeBytes)))
}
