package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportEmail  string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export an archived session to markdown",
	Long: `Export a chat session from the local archive to a markdown file.

The session id may be a unique prefix. A session continued under a
different email is archived separately for each email; pick one with
--email. By default exports to the current
directory as session-<id>.md. Use --output to specify a custom path, or
"-" for stdout.

Examples:
  agentchat export 0ccfddc4-00e7-443a-bb82-58ede5936619
  agentchat export 0ccfddc4 --output ~/chat.md
  agentchat export 0ccfddc4 -o -
  agentchat export 0ccfddc4 --email you@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "Export the part of the session sent under this email")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: session-<id>.md in current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	transcript, err := database.GetTranscript(args[0], exportEmail)
	if err != nil {
		return err
	}

	content := renderMarkdown(transcript)
	if exportOutput == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	outputPath := exportOutput
	if outputPath == "" {
		shortID := transcript.Session.SessionID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = filepath.Join(cwd, fmt.Sprintf("session-%s.md", shortID))
	} else if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(cwd, outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported session to: %s\n", outputPath)
	return nil
}

func renderMarkdown(t *models.Transcript) string {
	var b strings.Builder

	title := truncateText(t.Session.Preview, 60)
	if title == "" {
		title = "Chat session"
	}
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString("**Session ID:** `")
	b.WriteString(t.Session.SessionID)
	b.WriteString("`  \n")
	if t.Session.Email != "" {
		b.WriteString("**Email:** ")
		b.WriteString(t.Session.Email)
		b.WriteString("  \n")
	}
	b.WriteString("**Created:** ")
	b.WriteString(formatTimestampForExport(t.Session.CreatedAt))
	b.WriteString("  \n")
	b.WriteString("**Updated:** ")
	b.WriteString(formatTimestampForExport(t.Session.UpdatedAt))
	b.WriteString("  \n")
	b.WriteString(fmt.Sprintf("**Messages:** %d\n\n", len(t.Messages)))
	b.WriteString("---\n\n")

	for _, m := range t.Messages {
		b.WriteString("**")
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString("**")
		if !m.CreatedAt.IsZero() {
			b.WriteString(" _")
			b.WriteString(formatTimestampForExport(m.CreatedAt))
			b.WriteString("_")
		}
		b.WriteString("\n\n")

		if m.Content != "" {
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		}

		b.WriteString("---\n\n")
	}

	return b.String()
}

func formatTimestampForExport(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("Jan 02, 2006 15:04:05")
}
