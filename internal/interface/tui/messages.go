package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/agentchat/internal/core/chat"
	"github.com/neilberkman/agentchat/internal/core/models"
)

// historyLoadedMsg carries the outcome of Session.LoadHistory
type historyLoadedMsg struct {
	messages []models.Message
	err      error
}

// replyMsg carries the outcome of one Session.SendMessage turn
type replyMsg struct {
	message models.Message
	err     error
}

// revealTickMsg advances the reveal identified by id
type revealTickMsg struct {
	id int
}

type copiedMsg struct {
	err error
}

// The client applies its own timeouts to both calls

func loadHistory(session *chat.Session) tea.Cmd {
	return func() tea.Msg {
		messages, err := session.LoadHistory(context.Background())
		return historyLoadedMsg{messages: messages, err: err}
	}
}

func sendMessage(session *chat.Session, text string) tea.Cmd {
	return func() tea.Msg {
		msg, err := session.SendMessage(context.Background(), text)
		return replyMsg{message: msg, err: err}
	}
}

func revealTick(delay time.Duration, id int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return revealTickMsg{id: id}
	})
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}
