package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/neilberkman/agentchat/internal/core/config"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/rs/zerolog"
)

// State is the email gate state of a session
type State int

const (
	StateAwaitingEmail State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAwaitingEmail:
		return "awaiting-email"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Recorder receives every message appended to a session
type Recorder interface {
	RecordMessage(sessionID, email string, msg models.Message) error
}

// Session holds one client's identity and conversation log and runs one
// request/response cycle per user turn.
//
// The log is append-only between identity changes: a user message is
// appended right before the agent call, the assistant message right after
// it returns. Only one agent call may be in flight at a time.
type Session struct {
	mu       sync.Mutex
	agent    Agent
	id       string
	email    string
	messages []models.Message
	state    State
	gate     bool
	isTest   bool
	inFlight bool
	texts    config.Texts
	recorder Recorder
	logger   zerolog.Logger
}

// Option configures a Session
type Option func(*Session)

// WithEmailGate turns the email gate on or off (on by default). Without
// the gate the session is Ready immediately and identified by its id alone.
func WithEmailGate(enabled bool) Option {
	return func(s *Session) { s.gate = enabled }
}

// WithTestTraffic marks outgoing messages with is_test
func WithTestTraffic(isTest bool) Option {
	return func(s *Session) { s.isTest = isTest }
}

// WithTexts sets the placeholder and error texts
func WithTexts(texts config.Texts) Option {
	return func(s *Session) { s.texts = texts }
}

// WithRecorder archives every appended message
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the session logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an initialized session backed by agent
func NewSession(agent Agent, opts ...Option) *Session {
	s := &Session{
		agent:  agent,
		gate:   true,
		texts:  DefaultTexts(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Initialize()
	return s
}

// Initialize assigns the session id and an empty log. Only the first call
// has any effect.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return
	}
	s.id = uuid.NewString()
	s.messages = []models.Message{}
	if s.gate {
		s.state = StateAwaitingEmail
	} else {
		s.state = StateReady
	}
	s.logger = s.logger.With().Str("session_id", s.id).Logger()
	s.logger.Debug().Bool("email_gate", s.gate).Msg("session initialized")
}

// ID returns the session identifier
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Email returns the current email, empty while awaiting one
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// State returns the gate state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EmailGate reports whether the session requires an email
func (s *Session) EmailGate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate
}

// Busy reports whether an agent call is outstanding
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Messages returns a copy of the log in conversation order
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SubmitEmail validates candidate and, if it passes, stores it, clears
// the log and moves the session to Ready.
func (s *Session) SubmitEmail(candidate string) error {
	if !ValidateEmail(candidate) {
		return ErrInvalidEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate {
		return ErrNoEmailGate
	}
	if s.inFlight {
		return ErrBusy
	}
	s.email = strings.TrimSpace(candidate)
	s.messages = []models.Message{}
	s.state = StateReady
	s.logger.Info().Str("email", s.email).Msg("email accepted")
	return nil
}

// ResetIdentity forgets the email and returns to AwaitingEmail. The
// session id is kept.
func (s *Session) ResetIdentity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate {
		return ErrNoEmailGate
	}
	if s.inFlight {
		return ErrBusy
	}
	s.email = ""
	s.state = StateAwaitingEmail
	s.logger.Info().Msg("identity reset")
	return nil
}

// LoadHistory fetches prior messages for the current email and replaces
// the log with them. On failure the log is left alone and the returned
// slice is empty; the error is a warning, the session stays Ready.
func (s *Session) LoadHistory(ctx context.Context) ([]models.Message, error) {
	s.mu.Lock()
	if s.state != StateReady || s.email == "" {
		s.mu.Unlock()
		return []models.Message{}, ErrNotReady
	}
	if s.inFlight {
		s.mu.Unlock()
		return []models.Message{}, ErrBusy
	}
	s.inFlight = true
	email := s.email
	s.mu.Unlock()

	history, err := s.agent.History(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		cerr := asError(err)
		s.logger.Warn().Err(cerr).Str("kind", cerr.Kind.String()).Msg("history unavailable")
		return []models.Message{}, cerr
	}

	// Identity changed while the call was out
	if s.email != email {
		return []models.Message{}, nil
	}

	s.messages = make([]models.Message, len(history))
	copy(s.messages, history)
	s.logger.Info().Int("messages", len(history)).Msg("history loaded")

	out := make([]models.Message, len(history))
	copy(out, history)
	return out, nil
}

// SendMessage runs one user turn. The returned assistant message is always
// appended to the log, holding either the reply or an error text; the
// error, if any, describes what went wrong so the caller can present it.
// Validation errors (empty text, no email, busy) leave the log untouched
// and return a zero Message.
func (s *Session) SendMessage(ctx context.Context, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.gate && s.state != StateReady {
		s.mu.Unlock()
		return models.Message{}, ErrNotReady
	}
	if s.inFlight {
		s.mu.Unlock()
		return models.Message{}, ErrBusy
	}
	userMsg := models.NewUserMessage(text)
	s.messages = append(s.messages, userMsg)
	s.inFlight = true
	req := ChatRequest{
		Message:   text,
		Email:     s.email,
		SessionID: s.id,
		IsTest:    s.isTest,
	}
	s.mu.Unlock()

	s.record(req.Email, userMsg)

	reply, err := s.agent.Chat(ctx, req)
	var cerr *Error
	if err != nil {
		cerr = asError(err)
		s.logger.Warn().Err(cerr).Str("kind", cerr.Kind.String()).Msg("agent call failed")
	}

	assistantMsg := models.NewAssistantMessage(ReplyText(s.texts, reply, err))

	s.mu.Lock()
	s.messages = append(s.messages, assistantMsg)
	s.inFlight = false
	s.mu.Unlock()

	s.record(req.Email, assistantMsg)

	if cerr != nil {
		return assistantMsg, cerr
	}
	return assistantMsg, nil
}

func (s *Session) record(email string, msg models.Message) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordMessage(s.id, email, msg); err != nil {
		s.logger.Warn().Err(err).Msg("failed to archive message")
	}
}
