package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	err     error
	history []models.Message
}

func (f *fakeAgent) Chat(ctx context.Context, req chat.ChatRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + req.Message, nil
}

func (f *fakeAgent) History(ctx context.Context, email string) ([]models.Message, error) {
	return f.history, nil
}

func newModel(t *testing.T, agent chat.Agent, opts Options, sessionOpts ...chat.Option) Model {
	t.Helper()
	session := chat.NewSession(agent, sessionOpts...)
	m := New(session, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

// drain runs cmd and feeds history and reply results back into the model
func drain(m Model, cmd tea.Cmd) Model {
	var msgs []tea.Msg
	collect(cmd, &msgs)
	for _, msg := range msgs {
		switch msg.(type) {
		case historyLoadedMsg, replyMsg:
			next, follow := m.Update(msg)
			m = drain(next.(Model), follow)
		}
	}
	return m
}

func collect(cmd tea.Cmd, out *[]tea.Msg) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			collect(c, out)
		}
		return
	}
	*out = append(*out, msg)
}

func TestEmailGate(t *testing.T) {
	agent := &fakeAgent{history: []models.Message{
		{Role: models.RoleUser, Content: "earlier"},
		{Role: models.RoleAssistant, Content: "hello again"},
	}}
	m := newModel(t, agent, Options{HistoryEnabled: true})
	require.Equal(t, emailView, m.mode)

	m = typeText(m, "not-an-email")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, emailView, m.mode)
	assert.NotEmpty(t, m.emailErr)
	assert.Equal(t, chat.StateAwaitingEmail, m.session.State())

	m.emailInput.Reset()
	m = typeText(m, "a@b.co")
	m, cmd = press(m, tea.KeyEnter)
	assert.Equal(t, chatView, m.mode)
	assert.Empty(t, m.emailErr)
	assert.True(t, m.loadingHistory)
	assert.Equal(t, "a@b.co", m.session.Email())

	m = drain(m, cmd)
	assert.False(t, m.loadingHistory)
	assert.Len(t, m.session.Messages(), 2)
	assert.Equal(t, "Loaded 2 earlier messages", m.status)
	assert.Contains(t, m.View(), "a@b.co")
}

func TestEmailGate_NoHistoryEndpoint(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{})

	m = typeText(m, "a@b.co")
	m, cmd := press(m, tea.KeyEnter)
	assert.Equal(t, chatView, m.mode)
	assert.False(t, m.loadingHistory)
	assert.Nil(t, cmd)
}

func TestSendMessage(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{}, chat.WithEmailGate(false))
	require.Equal(t, chatView, m.mode)

	// Blank input is ignored
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)

	m = typeText(m, "hi there")
	m, cmd = press(m, tea.KeyEnter)
	assert.True(t, m.waiting)
	assert.Empty(t, m.promptInput.Value())

	m = drain(m, cmd)
	assert.False(t, m.waiting)
	assert.Nil(t, m.revealer)

	messages := m.session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "hi there", messages[0].Content)
	assert.Equal(t, "echo: hi there", messages[1].Content)
	assert.Empty(t, m.status)
}

func TestSendMessage_BlockedWhileWaiting(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{}, chat.WithEmailGate(false))

	m = typeText(m, "first")
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.waiting)

	m = typeText(m, "second")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.promptInput.Value())
	assert.NotEmpty(t, m.status)
}

func TestSendMessage_AgentError(t *testing.T) {
	agent := &fakeAgent{err: errors.New("connection refused")}
	m := newModel(t, agent, Options{}, chat.WithEmailGate(false))

	m = typeText(m, "hi")
	m, cmd := press(m, tea.KeyEnter)
	m = drain(m, cmd)

	assert.False(t, m.waiting)
	assert.Equal(t, statusError, m.statusLevel)
	assert.Contains(t, m.status, "connection refused")

	messages := m.session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Error: connection refused", messages[1].Content)
}

func TestReveal(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{RevealDelay: 50 * time.Millisecond}, chat.WithEmailGate(false))

	m = typeText(m, "abc")
	m, cmd := press(m, tea.KeyEnter)

	var msgs []tea.Msg
	collect(cmd, &msgs)
	var reply replyMsg
	for _, msg := range msgs {
		if r, ok := msg.(replyMsg); ok {
			reply = r
		}
	}
	require.Equal(t, "echo: abc", reply.message.Content)

	next, tick := m.Update(reply)
	m = next.(Model)
	require.NotNil(t, m.revealer)
	assert.NotNil(t, tick)
	assert.Equal(t, "", m.revealer.Shown())

	next, _ = m.Update(revealTickMsg{id: m.revealID})
	m = next.(Model)
	assert.Equal(t, "e", m.revealer.Shown())

	// Ticks from an older reveal do nothing
	next, cmd = m.Update(revealTickMsg{id: m.revealID - 1})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, "e", m.revealer.Shown())

	// Enter shows the rest
	m, _ = press(m, tea.KeyEnter)
	assert.True(t, m.revealer.Done())
	assert.Equal(t, "echo: abc", m.revealer.Shown())
}

func TestRevealUnitsPerTick(t *testing.T) {
	tests := []struct {
		delay    time.Duration
		interval time.Duration
		units    int
	}{
		{50 * time.Millisecond, 50 * time.Millisecond, 1},
		{revealFrame, revealFrame, 1},
		{4 * time.Millisecond, revealFrame, 4},
		{time.Millisecond, revealFrame, 16},
	}

	for _, tt := range tests {
		m := Model{opts: Options{RevealDelay: tt.delay}}
		assert.Equal(t, tt.interval, m.revealInterval(), tt.delay.String())
		assert.Equal(t, tt.units, m.unitsPerTick(), tt.delay.String())
	}
}

func TestResetIdentity(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{})
	m = typeText(m, "a@b.co")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, chatView, m.mode)
	id := m.session.ID()

	m, _ = press(m, tea.KeyCtrlR)
	assert.Equal(t, emailView, m.mode)
	assert.Equal(t, chat.StateAwaitingEmail, m.session.State())
	assert.Empty(t, m.session.Email())
	assert.Equal(t, id, m.session.ID())
}

func TestResetIdentity_NoGate(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{HistoryEnabled: true}, chat.WithEmailGate(false))
	assert.False(t, m.loadingHistory)

	m, _ = press(m, tea.KeyCtrlR)
	assert.Equal(t, chatView, m.mode)
	assert.Equal(t, "This chat does not use an email", m.status)
}

func TestHelpView(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{}, chat.WithEmailGate(false))

	m = typeText(m, "?")
	assert.Equal(t, helpView, m.mode)
	assert.Contains(t, m.View(), "ctrl+r")

	m, _ = press(m, tea.KeyEsc)
	assert.Equal(t, chatView, m.mode)

	// With text in the input "?" is just a character
	m = typeText(m, "why?")
	assert.Equal(t, chatView, m.mode)
	assert.Equal(t, "why?", m.promptInput.Value())
}

func TestHistoryFailureIsAWarning(t *testing.T) {
	m := newModel(t, &fakeAgent{}, Options{}, chat.WithEmailGate(false))

	next, _ := m.Update(historyLoadedMsg{err: errors.New("HTTP 500")})
	m = next.(Model)
	assert.Equal(t, statusWarning, m.statusLevel)
	assert.Contains(t, m.status, "HTTP 500")
	assert.Equal(t, chatView, m.mode)
}

func TestLastReply(t *testing.T) {
	_, ok := lastReply(nil)
	assert.False(t, ok)

	reply, ok := lastReply([]models.Message{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleUser, Content: "q2"},
	})
	assert.True(t, ok)
	assert.Equal(t, "a1", reply)
}
