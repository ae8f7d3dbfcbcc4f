package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// updateLoginScreen обрабатывает ввод данных для входа и регистрации.
func (m *model) updateLoginScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Записи доступны и без входа
		m.state = explorerScreen
		m.err = nil
		return m, nil
	case "ctrl+r":
		m.registerMode = !m.registerMode
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.focusedField = 1 - m.focusedField
		m.syncFocus()
		return m, nil
	case "enter":
		if m.focusedField == 0 {
			m.focusedField = 1
			m.syncFocus()
			return m, nil
		}
		if m.loggingIn {
			return m, nil
		}
		username := strings.TrimSpace(m.usernameInput.Value())
		password := m.passwordInput.Value()
		if username == "" || password == "" {
			m.err = errors.New("имя пользователя и пароль не могут быть пустыми")
			return m, nil
		}
		m.loggingIn = true
		m.err = nil
		status := "Выполняется вход..."
		if m.registerMode {
			status = "Выполняется регистрация..."
		}
		_, statusCmd := m.setStatusMessage(status)
		return m, tea.Batch(m.loginCmd(username, password, m.registerMode), statusCmd)
	}
	return m.updateInputs(msg)
}

func (m *model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focusedField == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *model) syncFocus() {
	if m.focusedField == 0 {
		m.usernameInput.Focus()
		m.passwordInput.Blur()
		return
	}
	m.usernameInput.Blur()
	m.passwordInput.Focus()
}

// viewLoginScreen отображает экран ввода данных для входа.
func (m *model) viewLoginScreen() string {
	var b strings.Builder

	title, hint := "Вход в учетную запись", "Enter - войти, Ctrl+R - регистрация, Esc - смотреть без входа"
	if m.registerMode {
		title, hint = "Регистрация", "Enter - зарегистрироваться, Ctrl+R - вход, Esc - смотреть без входа"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(subtleStyle.Render(m.serverURL) + "\n\n")
	b.WriteString(m.usernameInput.View() + "\n")
	b.WriteString(m.passwordInput.View() + "\n\n")
	if m.loggingIn {
		b.WriteString(m.spinner.View() + " " + m.status + "\n")
	}
	b.WriteString(subtleStyle.Render(hint) + "\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Ошибка: "+describeError(m.err)) + "\n")
	}
	return b.String()
}
