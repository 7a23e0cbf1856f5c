package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/agentchat/internal/core/chat"
)

func (m Model) updateEmail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit

	case "?":
		if m.emailInput.Value() == "" {
			m.prevMode = m.mode
			m.mode = helpView
			return m, nil
		}

	case "enter":
		return m.submitEmail()
	}

	var cmd tea.Cmd
	m.emailInput, cmd = m.emailInput.Update(msg)
	m.emailErr = ""
	return m, cmd
}

func (m Model) submitEmail() (tea.Model, tea.Cmd) {
	candidate := m.emailInput.Value()
	if err := m.session.SubmitEmail(candidate); err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidEmail):
			m.emailErr = "That doesn't look like an email address."
		case errors.Is(err, chat.ErrBusy):
			m.emailErr = "Please wait for the current request to finish."
		default:
			m.emailErr = err.Error()
		}
		return m, nil
	}

	m.emailErr = ""
	m.emailInput.Blur()
	m.mode = chatView
	m.promptInput.Reset()
	m.promptInput.Focus()
	m.revealer = nil
	m = m.setStatus(statusInfo, "")
	m = m.refresh(true)

	cmd := m.startHistory()
	return m, cmd
}

func (m Model) viewEmail() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("agentchat"))
	b.WriteString("\n\n")
	b.WriteString("Enter your email to start chatting.\n")
	b.WriteString(helpStyle.Render("It is used to load your previous conversation."))
	b.WriteString("\n\n")
	b.WriteString(m.emailInput.View())
	b.WriteString("\n\n")
	if m.emailErr != "" {
		b.WriteString(errorStyle.Render(m.emailErr))
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render("enter continue • ? help • esc quit"))
	b.WriteString("\n")

	return b.String()
}
