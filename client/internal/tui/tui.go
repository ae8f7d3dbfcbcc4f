// Package tui - терминальный интерфейс поверх модели вертикали.
package tui

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
)

// Options - параметры запуска интерфейса.
type Options struct {
	ServerURL string
	Vertical  string
	Client    api.Client
	Sessions  *session.Manager
}

// Start запускает TUI приложение и блокируется до выхода.
func Start(opts Options) error {
	m := initModel(opts.Client, opts.Sessions, opts.ServerURL, opts.Vertical)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.send = p.Send
	if _, err := p.Run(); err != nil {
		slog.Error("Ошибка при запуске TUI", "error", err)
		return fmt.Errorf("ошибка TUI: %w", err)
	}
	return nil
}
