package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/rs/zerolog"
)

type viewMode int

const (
	emailView viewMode = iota
	chatView
	helpView
)

// revealFrame is the shortest tick the reveal uses; faster delays reveal
// several units per frame
const revealFrame = 16 * time.Millisecond

// Options configure the chat TUI
type Options struct {
	RevealDelay    time.Duration
	HistoryEnabled bool
	Logger         zerolog.Logger
}

type Model struct {
	session *chat.Session
	opts    Options
	logger  zerolog.Logger

	mode     viewMode
	prevMode viewMode
	width    int
	height   int
	ready    bool

	emailInput  textinput.Model
	emailErr    string
	promptInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	keys        keymap
	help        help.Model
	renderer    *glamour.TermRenderer
	rendered    map[string]string // markdown cache for the current width

	waiting        bool // a chat call is outstanding
	loadingHistory bool
	revealer       *chat.Revealer
	revealID       int

	status      string
	statusLevel statusKind
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusWarning
	statusError
)

func New(session *chat.Session, opts Options) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email: "
	email.CharLimit = 254
	email.Width = 40

	prompt := textinput.New()
	prompt.Placeholder = "Type a message and press Enter"
	prompt.Prompt = "> "
	prompt.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		session:     session,
		opts:        opts,
		logger:      opts.Logger,
		emailInput:  email,
		promptInput: prompt,
		spinner:     sp,
		keys:        defaultKeymap(),
		help:        help.New(),
		rendered:    make(map[string]string),
	}

	if session.State() == chat.StateReady {
		m.mode = chatView
		m.promptInput.Focus()
		m.loadingHistory = opts.HistoryEnabled && session.Email() != ""
	} else {
		m.mode = emailView
		m.emailInput.Focus()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.loadingHistory {
		return tea.Batch(textinput.Blink, loadHistory(m.session), m.spinner.Tick)
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}

		// Mode-specific key handling
		switch m.mode {
		case emailView:
			return m.updateEmail(msg)
		case chatView:
			return m.updateChat(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case tea.MouseMsg:
		if m.mode == chatView {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if m.waiting || m.loadingHistory {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case historyLoadedMsg:
		return m.handleHistory(msg)

	case replyMsg:
		return m.handleReply(msg)

	case revealTickMsg:
		return m.handleRevealTick(msg)

	case copiedMsg:
		if msg.err != nil {
			m = m.setStatus(statusWarning, "Clipboard unavailable: "+msg.err.Error())
		} else {
			m = m.setStatus(statusInfo, "Reply copied to clipboard")
		}
		return m, nil
	}

	// Let the focused input handle cursor blink and friends
	var cmd tea.Cmd
	switch m.mode {
	case emailView:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case chatView:
		m.promptInput, cmd = m.promptInput.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	switch m.mode {
	case emailView:
		return m.viewEmail()
	case chatView:
		return m.viewChat()
	case helpView:
		return m.viewHelp()
	}

	return ""
}

func (m Model) setStatus(kind statusKind, text string) Model {
	m.status = text
	m.statusLevel = kind
	return m
}

// startHistory begins loading history for the current email
func (m *Model) startHistory() tea.Cmd {
	if !m.opts.HistoryEnabled || m.session.Email() == "" {
		return nil
	}
	m.loadingHistory = true
	m.status = ""
	return tea.Batch(loadHistory(m.session), m.spinner.Tick)
}
