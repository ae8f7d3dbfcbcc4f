package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/explorer"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
	"github.com/ShakilAhmedRego/VMV5/models"
)

// screenState - текущий экран.
type screenState int

const (
	loginScreen screenState = iota
	explorerScreen
)

func (s screenState) String() string {
	switch s {
	case loginScreen:
		return "Login"
	case explorerScreen:
		return "Explorer"
	}
	return "Unknown"
}

// statusDuration - сколько показывается статус.
var statusDuration = 4 * time.Second

// model представляет состояние TUI приложения.
type model struct {
	state     screenState
	client    api.Client
	sessions  *session.Manager
	serverURL string

	ctx    context.Context
	cancel context.CancelFunc
	// send доставляет сообщения из фоновых горутин. nil в тестах.
	send func(tea.Msg)

	verticals []models.VerticalInfo
	current   int
	explorers map[string]*explorer.Explorer
	cursor    int
	offset    int

	usernameInput textinput.Model
	passwordInput textinput.Model
	focusedField  int
	registerMode  bool
	loggingIn     bool

	spinner  spinner.Model
	status   string
	err      error
	width    int
	height   int
	docStyle lipgloss.Style
}

// initModel создает начальную модель. Если сессия восстановлена, открывается экран записей.
func initModel(client api.Client, sessions *session.Manager, serverURL, vertical string) *model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &model{
		state:         loginScreen,
		client:        client,
		sessions:      sessions,
		serverURL:     serverURL,
		ctx:           ctx,
		cancel:        cancel,
		explorers:     make(map[string]*explorer.Explorer),
		usernameInput: initUsernameInput(),
		passwordInput: initPasswordInput(),
		spinner:       initSpinner(),
		docStyle:      initDocStyle(),
		verticals:     []models.VerticalInfo{{Key: vertical}},
	}
	if _, ok := sessions.CurrentUserID(); ok {
		m.state = explorerScreen
	}
	return m
}

// Init запускает загрузку каталога вертикалей.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.loadVerticalsCmd(), m.spinner.Tick)
}

// View отображает текущий экран.
func (m *model) View() string {
	var content string
	switch m.state {
	case loginScreen:
		content = m.viewLoginScreen()
	case explorerScreen:
		content = m.viewExplorerScreen()
	}
	return m.docStyle.Render(content)
}

// explorer возвращает модель текущей вертикали, создавая ее при первом обращении.
func (m *model) explorer() *explorer.Explorer {
	key := m.verticals[m.current].Key
	ex, ok := m.explorers[key]
	if !ok {
		ex = explorer.New(key, m.client, m.sessions)
		m.explorers[key] = ex
		if m.send != nil {
			send := m.send
			go ex.Watch(m.ctx, func() { send(refreshMsg{vertical: key}) })
		}
	}
	return ex
}

// setStatusMessage показывает статус и планирует его очистку.
func (m *model) setStatusMessage(status string) (tea.Model, tea.Cmd) {
	m.status = status
	return m, clearStatusCmd(statusDuration)
}
