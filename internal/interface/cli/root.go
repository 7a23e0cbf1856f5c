package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/config"
	"github.com/neilberkman/agentchat/internal/core/db"
	"github.com/neilberkman/agentchat/internal/core/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	dbPath      string
	agentURL    string
	historyURL  string
	logLevel    string
	noArchive   bool
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentchat",
	Short: "Terminal chat client for a remote agent",
	Long: `agentchat - talk to a remote conversational agent from the terminal

Collects your email, loads your previous conversation from the agent's
history endpoint and streams each reply with a typewriter effect.
Transcripts are archived locally in SQLite.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the chat TUI if no subcommand specified
		return chatCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Transcript database path (overrides archive.db_path)")
	rootCmd.PersistentFlags().StringVar(&agentURL, "agent-url", "", "Agent endpoint (overrides agent_url)")
	rootCmd.PersistentFlags().StringVar(&historyURL, "history-url", "", "History endpoint (overrides history_url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noArchive, "no-archive", false, "Do not record transcripts locally")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if agentURL != "" {
		cfg.AgentURL = agentURL
	}
	if historyURL != "" {
		cfg.HistoryURL = historyURL
	}
	if dbPath != "" {
		cfg.Archive.DBPath = dbPath
	}
	if noArchive {
		cfg.Archive.Enabled = false
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app bundles what every command needs: config, logger and the archive
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	archive *db.DB
	closers []io.Closer
}

func newApp(target logging.Target) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log, target)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if cfg.Archive.Enabled {
		archive, err := db.New(cfg.Archive.DBPath)
		if err != nil {
			// The archive is an observer, chatting works without it
			logger.Warn().Err(err).Str("path", cfg.Archive.DBPath).Msg("transcript archive unavailable")
		} else {
			a.archive = archive
			a.closers = append([]io.Closer{archive}, a.closers...)
		}
	}

	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *app) newClient() *chat.Client {
	return chat.NewClient(chat.ClientConfigFrom(a.cfg), chat.WithClientLogger(a.logger))
}

func (a *app) newSession() *chat.Session {
	opts := []chat.Option{
		chat.WithEmailGate(a.cfg.RequireEmail),
		chat.WithTestTraffic(a.cfg.IsTest),
		chat.WithTexts(a.cfg.Texts),
		chat.WithLogger(a.logger),
	}
	if a.archive != nil {
		opts = append(opts, chat.WithRecorder(a.archive))
	}
	return chat.NewSession(a.newClient(), opts...)
}

// openArchive opens the transcript database for read-only commands
func openArchive() (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.DBPath == "" {
		return nil, fmt.Errorf("no transcript database configured")
	}
	database, err := db.New(cfg.Archive.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
