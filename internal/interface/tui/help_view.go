package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.mode = m.prevMode
		return m, nil
	}

	return m, nil
}

func (m Model) viewHelp() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("agentchat - Help"))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render(`EMAIL
  Type your email and press enter. It identifies you to the agent and
  is used to load your previous conversation. esc quits.`))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render("CHAT"))
	b.WriteString("\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render("? only opens help while the input is empty."))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press esc, q or ? to go back"))
	b.WriteString("\n")

	return b.String()
}
