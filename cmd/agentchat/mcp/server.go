package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/db"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/rs/zerolog"
)

// SendMessageArgs defines arguments for the send_message tool
type SendMessageArgs struct {
	Email   string `json:"email" jsonschema:"description=Email identifying the conversation"`
	Message string `json:"message" jsonschema:"description=Text to send to the agent,required"`
}

// LoadHistoryArgs defines arguments for the load_history tool
type LoadHistoryArgs struct {
	Email string `json:"email" jsonschema:"description=Email whose history to load,required"`
}

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Email string `json:"email,omitempty" jsonschema:"description=Filter by email"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max sessions to return (default: 20)"`
}

// GetTranscriptArgs defines arguments for the get_transcript tool
type GetTranscriptArgs struct {
	SessionID string `json:"session_id" jsonschema:"description=Session id or unique prefix,required"`
	Email     string `json:"email,omitempty" jsonschema:"description=Email the session was recorded under"`
}

// Reply is the result of send_message
type Reply struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Error     string `json:"error,omitempty"`
}

// History is the result of load_history
type History struct {
	Messages []models.Message `json:"messages"`
	Warning  string           `json:"warning,omitempty"`
}

// SessionSummary represents an archived session in the list view
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Email        string `json:"email,omitempty"`
	Preview      string `json:"preview,omitempty"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// Options configure the MCP server
type Options struct {
	// NewSession builds a fresh chat session; called once per email
	NewSession func() *chat.Session
	// Archive enables list_sessions and get_transcript when set
	Archive *db.DB
	Logger  zerolog.Logger
	Version string
}

// Server holds one chat session per email
type Server struct {
	mu         sync.Mutex
	sessions   map[string]*chat.Session
	newSession func() *chat.Session
	archive    *db.DB
	logger     zerolog.Logger
}

// NewServer creates the tool handlers' shared state
func NewServer(opts Options) *Server {
	return &Server{
		sessions:   make(map[string]*chat.Session),
		newSession: opts.NewSession,
		archive:    opts.Archive,
		logger:     opts.Logger,
	}
}

// StartServer starts the MCP server on stdio
func StartServer(opts Options) error {
	if opts.NewSession == nil {
		return fmt.Errorf("no session factory configured")
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	srv := NewServer(opts)
	s := server.NewMCPServer(
		"AgentChat",
		version,
	)
	srv.Register(s)

	return server.ServeStdio(s)
}

// Register adds the tools to s
func (srv *Server) Register(s *server.MCPServer) {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the agent on behalf of a user and return the agent's reply. Each email has its own conversation that persists while the server runs."),
		mcp.WithString("email",
			mcp.Description("Email identifying the user (required unless the server runs without the email gate)")),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Text to send to the agent")),
	)
	s.AddTool(sendTool, srv.handleSendMessage)

	historyTool := mcp.NewTool("load_history",
		mcp.WithDescription("Load the user's previous conversation from the agent's history endpoint. Replaces the server-side conversation for that email."),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email whose history to load")),
	)
	s.AddTool(historyTool, srv.handleLoadHistory)

	if srv.archive == nil {
		return
	}

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List chat sessions recorded in the local transcript archive, most recent first"),
		mcp.WithString("email",
			mcp.Description("Filter by email")),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
	)
	s.AddTool(listTool, srv.handleListSessions)

	transcriptTool := mcp.NewTool("get_transcript",
		mcp.WithDescription("Retrieve every message of an archived chat session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id or a unique prefix of it")),
	)
	s.AddTool(transcriptTool, srv.handleGetTranscript)
}

// session returns the conversation for email, creating it on first use
func (srv *Server) session(email string) (*chat.Session, error) {
	email = strings.TrimSpace(email)
	key := strings.ToLower(email)

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if s, ok := srv.sessions[key]; ok {
		return s, nil
	}

	s := srv.newSession()
	if s.EmailGate() {
		if err := s.SubmitEmail(email); err != nil {
			return nil, err
		}
	}
	srv.sessions[key] = s
	srv.logger.Debug().Str("session_id", s.ID()).Str("email", email).Msg("created chat session")
	return s, nil
}

func decodeArgs(request mcp.CallToolRequest, v interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (srv *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SendMessageArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	s, err := srv.session(args.Email)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid email %q: %v", args.Email, err)), nil
	}

	msg, err := s.SendMessage(ctx, args.Message)
	if chat.KindOf(err) == chat.KindValidation {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply := Reply{
		SessionID: s.ID(),
		Role:      string(msg.Role),
		Content:   msg.Content,
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return jsonResult(reply)
}

func (srv *Server) handleLoadHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args LoadHistoryArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if !chat.ValidateEmail(args.Email) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid email %q", args.Email)), nil
	}

	s, err := srv.session(args.Email)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid email %q: %v", args.Email, err)), nil
	}

	var messages []models.Message
	var warning string
	if s.EmailGate() {
		messages, err = s.LoadHistory(ctx)
		if errors.Is(err, chat.ErrBusy) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			warning = err.Error()
		}
	} else {
		warning = "history requires the email gate"
	}

	if messages == nil {
		messages = []models.Message{}
	}
	return jsonResult(History{Messages: messages, Warning: warning})
}

func (srv *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ListSessionsArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	limit := args.Limit
	if limit == 0 {
		limit = 20
	}

	coreSessions, err := srv.archive.ListSessions(db.SessionFilter{Email: args.Email, Limit: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	sessions := []SessionSummary{}
	for _, cs := range coreSessions {
		sessions = append(sessions, SessionSummary{
			SessionID:    cs.SessionID,
			Email:        cs.Email,
			Preview:      cs.Preview,
			UpdatedAt:    cs.UpdatedAt.Format("2006-01-02 15:04:05"),
			MessageCount: cs.MessageCount,
		})
	}

	return jsonResult(map[string]interface{}{
		"sessions": sessions,
	})
}

func (srv *Server) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args GetTranscriptArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	transcript, err := srv.archive.GetTranscript(args.SessionID, args.Email)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"session_id": transcript.Session.SessionID,
		"email":      transcript.Session.Email,
		"messages":   transcript.Messages,
	})
}
