package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/agentchat/internal/core/models"
)

const (
	headerHeight = 2 // title + rule
	footerHeight = 5 // status line + bordered input + key hints
	minWrapWidth = 20
)

// resize lays out the viewport and inputs for a new terminal size. The
// markdown renderer and its cache depend on the width.
func (m Model) resize(width, height int) Model {
	m.width = width
	m.height = height

	vpHeight := height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}

	m.promptInput.Width = width - 8
	m.help.Width = width
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(m.wrapWidth()),
	)
	m.rendered = make(map[string]string)

	return m.refresh(true)
}

func (m Model) wrapWidth() int {
	w := m.width - 4
	if w < minWrapWidth {
		w = minWrapWidth
	}
	return w
}

// refresh re-renders the transcript into the viewport. follow keeps the
// view pinned to the newest message.
func (m Model) refresh(follow bool) Model {
	if !m.ready {
		return m
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
	return m
}

func (m Model) renderTranscript() string {
	messages := m.session.Messages()
	if len(messages) == 0 {
		return placeholderStyle.Render("No messages yet. Say hello!")
	}

	width := m.wrapWidth()
	var b strings.Builder
	for i, msg := range messages {
		revealing := i == len(messages)-1 &&
			msg.Role == models.RoleAssistant &&
			m.revealer != nil && !m.revealer.Done()

		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Render("▸ You"))
		} else {
			b.WriteString(assistantStyle.Render("▸ Agent"))
		}
		if !msg.CreatedAt.IsZero() {
			b.WriteString(" ")
			b.WriteString(timestampStyle.Render(msg.CreatedAt.Local().Format("Jan 2 15:04")))
		}
		b.WriteString("\n")

		switch {
		case revealing:
			b.WriteString(wordwrap.String(m.revealer.Shown(), width))
			b.WriteString("▌")
		case msg.Role == models.RoleAssistant:
			b.WriteString(m.markdown(msg.Content))
		default:
			b.WriteString(wordwrap.String(msg.Content, width))
		}
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// markdown renders assistant text with glamour, falling back to plain
// wrapped text when no renderer is available or rendering fails
func (m Model) markdown(content string) string {
	if out, ok := m.rendered[content]; ok {
		return out
	}
	out := wordwrap.String(content, m.wrapWidth())
	if m.renderer != nil {
		if r, err := m.renderer.Render(content); err == nil {
			out = strings.Trim(r, "\n")
		}
	}
	m.rendered[content] = out
	return out
}
