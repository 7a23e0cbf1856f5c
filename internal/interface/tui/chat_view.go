package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/models"
)

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help) && m.promptInput.Value() == "":
		m.prevMode = m.mode
		m.mode = helpView
		return m, nil

	case key.Matches(msg, m.keys.Send):
		// Enter during a reveal shows the rest at once
		if m.revealer != nil && !m.revealer.Done() {
			m.revealer.Finish()
			return m.refresh(true), nil
		}
		return m.submitPrompt()

	case key.Matches(msg, m.keys.Reset):
		return m.resetIdentity()

	case key.Matches(msg, m.keys.Copy):
		if reply, ok := lastReply(m.session.Messages()); ok {
			return m, copyToClipboard(reply)
		}
		m = m.setStatus(statusInfo, "Nothing to copy yet")
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) busy() bool {
	return m.waiting || m.loadingHistory
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	text := m.promptInput.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.busy() {
		m = m.setStatus(statusInfo, "Please wait for the current request to finish")
		return m, nil
	}

	m.promptInput.Reset()
	m.waiting = true
	m.revealer = nil
	m = m.setStatus(statusInfo, "")

	// SendMessage appends the user message before the call goes out; render
	// it optimistically so it shows while waiting
	m = m.refreshPending(text)

	return m, tea.Batch(sendMessage(m.session, text), m.spinner.Tick)
}

// refreshPending shows text as the newest user message until the session
// log catches up
func (m Model) refreshPending(text string) Model {
	if !m.ready {
		return m
	}
	pending := m.renderTranscript()
	messages := m.session.Messages()
	if n := len(messages); n == 0 || messages[n-1].Role != models.RoleUser || messages[n-1].Content != text {
		if len(messages) == 0 {
			pending = ""
		} else {
			pending += "\n\n"
		}
		pending += userStyle.Render("▸ You") + "\n" + text
	}
	m.viewport.SetContent(pending)
	m.viewport.GotoBottom()
	return m
}

func (m Model) resetIdentity() (tea.Model, tea.Cmd) {
	if err := m.session.ResetIdentity(); err != nil {
		switch {
		case errors.Is(err, chat.ErrNoEmailGate):
			m = m.setStatus(statusInfo, "This chat does not use an email")
		case errors.Is(err, chat.ErrBusy):
			m = m.setStatus(statusInfo, "Please wait for the current request to finish")
		default:
			m = m.setStatus(statusError, err.Error())
		}
		return m, nil
	}

	m.mode = emailView
	m.promptInput.Blur()
	m.emailInput.Reset()
	m.emailInput.Focus()
	m.emailErr = ""
	m.revealer = nil
	m.loadingHistory = false
	m = m.setStatus(statusInfo, "")
	return m, nil
}

func (m Model) handleHistory(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	m.loadingHistory = false
	switch {
	case msg.err != nil:
		m = m.setStatus(statusWarning, "Could not load your history: "+msg.err.Error())
	case len(msg.messages) > 0:
		m = m.setStatus(statusInfo, fmt.Sprintf("Loaded %d earlier messages", len(msg.messages)))
	}
	return m.refresh(true), nil
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	m.waiting = false

	if msg.err != nil {
		switch chat.KindOf(msg.err) {
		case chat.KindValidation:
			m = m.setStatus(statusWarning, msg.err.Error())
			return m.refresh(true), nil
		default:
			m.logger.Debug().Err(msg.err).Msg("turn failed")
			m = m.setStatus(statusError, msg.err.Error())
		}
	}

	if m.opts.RevealDelay <= 0 || msg.message.Content == "" {
		m.revealer = nil
		return m.refresh(true), nil
	}

	m.revealer = chat.NewRevealer(msg.message.Content)
	m.revealID++
	return m.refresh(true), revealTick(m.revealInterval(), m.revealID)
}

// revealInterval is the tick period; unitsPerTick makes up the difference
// when the configured delay is shorter than a frame
func (m Model) revealInterval() time.Duration {
	if m.opts.RevealDelay < revealFrame {
		return revealFrame
	}
	return m.opts.RevealDelay
}

func (m Model) unitsPerTick() int {
	if m.opts.RevealDelay <= 0 || m.opts.RevealDelay >= revealFrame {
		return 1
	}
	return int(revealFrame / m.opts.RevealDelay)
}

func (m Model) handleRevealTick(msg revealTickMsg) (tea.Model, tea.Cmd) {
	// Stale tick from an earlier reveal
	if msg.id != m.revealID || m.revealer == nil || m.revealer.Done() {
		return m, nil
	}

	m.revealer.Advance(m.unitsPerTick())
	m = m.refresh(true)
	if m.revealer.Done() {
		return m, nil
	}
	return m, revealTick(m.revealInterval(), m.revealID)
}

func lastReply(messages []models.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return messages[i].Content, true
		}
	}
	return "", false
}

func (m Model) viewChat() string {
	var b strings.Builder

	// Header
	title := titleStyle.Render("agentchat")
	who := m.session.Email()
	if who == "" {
		who = "session " + shortID(m.session.ID())
	}
	b.WriteString(ansi.Truncate(title+"  "+timestampStyle.Render(who), max(m.width, 1), "…"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Status line
	switch {
	case m.waiting:
		b.WriteString(m.spinner.View() + " " + statusStyle.Render("The agent is thinking..."))
	case m.loadingHistory:
		b.WriteString(m.spinner.View() + " " + statusStyle.Render("Loading your conversation..."))
	case m.status != "":
		switch m.statusLevel {
		case statusWarning:
			b.WriteString(warningStyle.Render(m.status))
		case statusError:
			b.WriteString(errorStyle.Render(m.status))
		default:
			b.WriteString(statusStyle.Render(m.status))
		}
	}
	b.WriteString("\n")

	b.WriteString(inputBoxStyle.Render(m.promptInput.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
