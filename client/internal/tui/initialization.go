package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// Константы, используемые при инициализации.
const (
	initPasswordCharLimit = 156
	initPasswordWidth     = 30
	initUserCharLimit     = 128
	initUserWidth         = 30

	docStyleMarginVertical   = 1
	docStyleMarginHorizontal = 2
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab     = tabStyle.Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Background(lipgloss.Color("237"))
	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	unlockBarBase = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).
			BorderForeground(lipgloss.Color("62"))
)

// initUsernameInput инициализирует поле ввода имени пользователя.
func initUsernameInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Имя пользователя"
	ti.Focus()
	ti.CharLimit = initUserCharLimit
	ti.Width = initUserWidth
	return ti
}

// initPasswordInput инициализирует поле ввода пароля.
func initPasswordInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Пароль"
	ti.CharLimit = initPasswordCharLimit
	ti.Width = initPasswordWidth
	ti.EchoMode = textinput.EchoPassword
	return ti
}

func initSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return s
}

func initDocStyle() lipgloss.Style {
	return lipgloss.NewStyle().Margin(docStyleMarginVertical, docStyleMarginHorizontal)
}
