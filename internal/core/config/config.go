package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default texts shown in the transcript. They are mustache templates:
// http_error receives {{status}}, transport_error receives {{{detail}}}.
const (
	DefaultNoReplyText        = "No response from the agent."
	DefaultHTTPErrorText      = "Error connecting to the agent (HTTP {{status}})."
	DefaultTransportErrorText = "Error: {{{detail}}}"
)

const (
	DefaultAgentURL       = "http://localhost:8000/bot"
	DefaultReplyField     = "message"
	DefaultChatTimeout    = 60 * time.Second
	DefaultHistoryTimeout = 30 * time.Second
	DefaultHistoryLimit   = 20
	DefaultRevealDelay    = 10 * time.Millisecond
)

// Config holds everything the chat client needs to talk to the agent
type Config struct {
	AgentURL       string
	HistoryURL     string // Empty disables history loading
	ReplyField     string // "message" or "response"
	IsTest         bool   // Sent as is_test so the agent can skip persisting demo traffic
	RequireEmail   bool
	ChatTimeout    time.Duration
	HistoryTimeout time.Duration
	HistoryLimit   int
	RevealDelay    time.Duration
	Texts          Texts
	Archive        Archive
	Log            Log
}

// Texts are the user-visible replies synthesized by the client
type Texts struct {
	NoReply        string
	HTTPError      string
	TransportError string
}

// Archive controls the local SQLite transcript copy
type Archive struct {
	Enabled bool
	DBPath  string
}

// Log controls the zerolog output
type Log struct {
	Level string
	File  string // TUI log file; empty disables logging while the TUI runs
}

type tomlConfig struct {
	AgentURL       string      `toml:"agent_url"`
	HistoryURL     string      `toml:"history_url"`
	ReplyField     string      `toml:"reply_field"`
	IsTest         bool        `toml:"is_test"`
	RequireEmail   bool        `toml:"require_email"`
	ChatTimeout    string      `toml:"chat_timeout"`
	HistoryTimeout string      `toml:"history_timeout"`
	HistoryLimit   int         `toml:"history_limit"`
	RevealDelay    string      `toml:"reveal_delay"`
	Texts          tomlTexts   `toml:"texts"`
	Archive        tomlArchive `toml:"archive"`
	Log            tomlLog     `toml:"log"`
}

type tomlTexts struct {
	NoReply        string `toml:"no_reply"`
	HTTPError      string `toml:"http_error"`
	TransportError string `toml:"transport_error"`
}

type tomlArchive struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

type tomlLog struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Dir returns ~/.config/agentchat, or the working directory if home is unknown
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "agentchat")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration
func Default() *Config {
	dir := Dir()
	return &Config{
		AgentURL:       DefaultAgentURL,
		ReplyField:     DefaultReplyField,
		IsTest:         false,
		RequireEmail:   true,
		ChatTimeout:    DefaultChatTimeout,
		HistoryTimeout: DefaultHistoryTimeout,
		HistoryLimit:   DefaultHistoryLimit,
		RevealDelay:    DefaultRevealDelay,
		Texts: Texts{
			NoReply:        DefaultNoReplyText,
			HTTPError:      DefaultHTTPErrorText,
			TransportError: DefaultTransportErrorText,
		},
		Archive: Archive{
			Enabled: true,
			DBPath:  filepath.Join(dir, "transcripts.db"),
		},
		Log: Log{
			Level: "info",
			File:  filepath.Join(dir, "agentchat.log"),
		},
	}
}

// Load reads the TOML config at path (DefaultPath when empty).
// A missing file yields the defaults. The result is not validated, so
// callers can apply overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	// Keys absent from the file keep these values
	tc := tomlConfig{
		AgentURL:       cfg.AgentURL,
		ReplyField:     cfg.ReplyField,
		IsTest:         cfg.IsTest,
		RequireEmail:   cfg.RequireEmail,
		ChatTimeout:    cfg.ChatTimeout.String(),
		HistoryTimeout: cfg.HistoryTimeout.String(),
		HistoryLimit:   cfg.HistoryLimit,
		RevealDelay:    cfg.RevealDelay.String(),
		Texts: tomlTexts{
			NoReply:        cfg.Texts.NoReply,
			HTTPError:      cfg.Texts.HTTPError,
			TransportError: cfg.Texts.TransportError,
		},
		Archive: tomlArchive{
			Enabled: cfg.Archive.Enabled,
			DBPath:  cfg.Archive.DBPath,
		},
		Log: tomlLog{
			Level: cfg.Log.Level,
			File:  cfg.Log.File,
		},
	}
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var err error
	cfg.AgentURL = strings.TrimSpace(tc.AgentURL)
	cfg.HistoryURL = strings.TrimSpace(tc.HistoryURL)
	cfg.ReplyField = strings.TrimSpace(tc.ReplyField)
	cfg.IsTest = tc.IsTest
	cfg.RequireEmail = tc.RequireEmail
	cfg.HistoryLimit = tc.HistoryLimit
	if cfg.ChatTimeout, err = time.ParseDuration(tc.ChatTimeout); err != nil {
		return nil, fmt.Errorf("invalid chat_timeout: %w", err)
	}
	if cfg.HistoryTimeout, err = time.ParseDuration(tc.HistoryTimeout); err != nil {
		return nil, fmt.Errorf("invalid history_timeout: %w", err)
	}
	if cfg.RevealDelay, err = time.ParseDuration(tc.RevealDelay); err != nil {
		return nil, fmt.Errorf("invalid reveal_delay: %w", err)
	}
	cfg.Texts = Texts(tc.Texts)
	cfg.Archive = Archive(tc.Archive)
	cfg.Log = Log(tc.Log)

	return cfg, nil
}

// Validate checks that the configuration can drive a chat session
func (c *Config) Validate() error {
	if c.AgentURL == "" {
		return errors.New("agent_url cannot be empty")
	}
	if c.ReplyField != "message" && c.ReplyField != "response" {
		return fmt.Errorf("reply_field must be \"message\" or \"response\", got %q", c.ReplyField)
	}
	if c.ChatTimeout <= 0 {
		return errors.New("chat_timeout must be > 0")
	}
	if c.HistoryTimeout <= 0 {
		return errors.New("history_timeout must be > 0")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history_limit must be > 0")
	}
	if c.RevealDelay < 0 {
		return errors.New("reveal_delay cannot be negative")
	}
	if c.Archive.Enabled && c.Archive.DBPath == "" {
		return errors.New("archive.db_path cannot be empty when the archive is enabled")
	}
	return nil
}
