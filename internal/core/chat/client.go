package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/neilberkman/agentchat/internal/core/config"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/rs/zerolog"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// Agent is the remote side of a chat session
type Agent interface {
	// Chat sends one user turn and returns the reply text. An empty reply
	// means the response carried no usable reply field.
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// History returns prior messages for email, oldest first
	History(ctx context.Context, email string) ([]models.Message, error)
}

// ChatRequest is the body POSTed to the agent endpoint
type ChatRequest struct {
	Message   string `json:"message"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IsTest    bool   `json:"is_test,omitempty"`
}

type historyRequest struct {
	Email string `json:"email"`
}

// ClientConfig holds the endpoint contract for a Client
type ClientConfig struct {
	AgentURL       string
	HistoryURL     string // Empty disables History
	ReplyField     string
	ChatTimeout    time.Duration
	HistoryTimeout time.Duration
	HistoryLimit   int
}

// ClientConfigFrom extracts the endpoint settings from the app config
func ClientConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		AgentURL:       cfg.AgentURL,
		HistoryURL:     cfg.HistoryURL,
		ReplyField:     cfg.ReplyField,
		ChatTimeout:    cfg.ChatTimeout,
		HistoryTimeout: cfg.HistoryTimeout,
		HistoryLimit:   cfg.HistoryLimit,
	}
}

// Client talks JSON over HTTP to the agent and history endpoints
type Client struct {
	http   *http.Client
	cfg    ClientConfig
	logger zerolog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientLogger sets the logger used for request tracing
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client; zero timeouts and limits take the defaults
func NewClient(cfg ClientConfig, opts ...ClientOption) *Client {
	if cfg.ReplyField == "" {
		cfg.ReplyField = config.DefaultReplyField
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = config.DefaultChatTimeout
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = config.DefaultHistoryTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = config.DefaultHistoryLimit
	}

	c := &Client{
		http:   &http.Client{},
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HistoryEnabled reports whether a history endpoint is configured
func (c *Client) HistoryEnabled() bool {
	return c.cfg.HistoryURL != ""
}

// Chat implements Agent
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	status, data, err := c.post(ctx, c.cfg.AgentURL, body, c.cfg.ChatTimeout)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &Error{Kind: KindRemote, Status: status, Detail: http.StatusText(status)}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &Error{Kind: KindTransport, Detail: "malformed response: " + err.Error(), Err: err}
	}

	var reply string
	if raw, ok := payload[c.cfg.ReplyField]; ok {
		// A non-string reply field counts as absent
		_ = json.Unmarshal(raw, &reply)
	}
	return reply, nil
}

// History implements Agent. Without a history endpoint it returns no messages.
func (c *Client) History(ctx context.Context, email string) ([]models.Message, error) {
	if !c.HistoryEnabled() {
		c.logger.Debug().Msg("history endpoint not configured, skipping")
		return []models.Message{}, nil
	}

	body, err := json.Marshal(historyRequest{Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to encode history request: %w", err)
	}

	status, data, err := c.post(ctx, c.cfg.HistoryURL, body, c.cfg.HistoryTimeout)
	if err != nil {
		return []models.Message{}, err
	}
	if status != http.StatusOK {
		return []models.Message{}, &Error{Kind: KindRemote, Status: status, Detail: http.StatusText(status)}
	}

	messages, err := ParseHistory(data, c.cfg.HistoryLimit)
	if err != nil {
		return []models.Message{}, &Error{Kind: KindTransport, Detail: "malformed history: " + err.Error(), Err: err}
	}
	return messages, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("request timed out after %s", timeout)
		}
		c.logger.Warn().Err(err).Str("url", url).Dur("elapsed", time.Since(start)).Msg("request failed")
		return 0, nil, &Error{Kind: KindTransport, Detail: detail, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Detail: "failed to read response: " + err.Error(), Err: err}
	}

	c.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("request complete")

	return resp.StatusCode, data, nil
}
