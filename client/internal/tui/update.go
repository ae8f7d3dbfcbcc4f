package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update обрабатывает входящие сообщения.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case verticalsMsg:
		return m.handleVerticalsMsg(msg)

	case loadedMsg:
		if msg.vertical == m.currentKey() {
			m.err = msg.err
			m.clampCursor()
		}
		return m, nil

	case refreshMsg:
		if msg.vertical == m.currentKey() {
			m.err = m.explorer().Err()
			m.clampCursor()
		}
		return m, nil

	case unlockedMsg:
		return m.handleUnlockedMsg(msg)

	case loginResultMsg:
		return m.handleLoginResultMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		switch m.state {
		case loginScreen:
			return m.updateLoginScreen(msg)
		case explorerScreen:
			return m.updateExplorerScreen(msg)
		}
	}

	if m.state == loginScreen {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m *model) handleVerticalsMsg(msg verticalsMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		slog.Error("Не удалось загрузить каталог вертикалей", "error", msg.err)
		m.err = msg.err
		return m, m.loadCmd()
	}
	if len(msg.list) == 0 {
		return m, m.loadCmd()
	}
	key := m.currentKey()
	m.verticals = msg.list
	m.current = 0
	for i, v := range msg.list {
		if v.Key == key {
			m.current = i
			break
		}
	}
	return m, m.loadCmd()
}

func (m *model) handleUnlockedMsg(msg unlockedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		slog.Warn("Разблокировка не удалась", "vertical", msg.vertical, "error", msg.err)
		m.err = msg.err
		return m.setStatusMessage(describeError(msg.err))
	}
	m.err = nil
	if msg.resp == nil {
		return m.setStatusMessage("Все выбранные записи уже разблокированы")
	}
	var balance int64
	if ex, ok := m.explorers[msg.vertical]; ok {
		balance, _ = ex.Balance()
	}
	return m.setStatusMessage(fmt.Sprintf("Разблокировано: %d, списано: %d, баланс: %d",
		len(msg.resp.Granted), msg.resp.Charged, balance))
}

func (m *model) handleLoginResultMsg(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.loggingIn = false
	if msg.err != nil {
		slog.Warn("Вход не выполнен", "username", msg.username, "error", msg.err)
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.state = explorerScreen
	m.usernameInput.Reset()
	m.passwordInput.Reset()
	_, statusCmd := m.setStatusMessage("Вход выполнен: " + msg.username)
	return m, tea.Batch(statusCmd, m.loadCmd())
}

func (m *model) currentKey() string {
	return m.verticals[m.current].Key
}

func (m *model) clampCursor() {
	n := len(m.explorer().Records())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
