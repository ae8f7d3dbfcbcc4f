package tui

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
	"github.com/ShakilAhmedRego/VMV5/models"
)

// Сообщение для очистки статуса.
type clearStatusMsg struct{}

// verticalsMsg - загружен каталог вертикалей.
type verticalsMsg struct {
	list []models.VerticalInfo
	err  error
}

// loadedMsg - вертикаль загружена (или не загрузилась).
type loadedMsg struct {
	vertical string
	err      error
}

// refreshMsg - модель вертикали изменилась в фоне (смена сессии).
type refreshMsg struct {
	vertical string
}

// unlockedMsg - результат разблокировки.
type unlockedMsg struct {
	vertical string
	resp     *models.UnlockResponse
	err      error
}

// loginResultMsg - результат входа или регистрации.
type loginResultMsg struct {
	username string
	resp     *models.LoginResponse
	err      error
}

// clearStatusCmd возвращает команду, которая отправит clearStatusMsg через delay.
func clearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m *model) loadVerticalsCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		list, err := client.Verticals(ctx)
		return verticalsMsg{list: list, err: err}
	}
}

func (m *model) loadCmd() tea.Cmd {
	ex := m.explorer()
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{vertical: ex.Vertical(), err: ex.Load(ctx)}
	}
}

func (m *model) unlockCmd() tea.Cmd {
	ex := m.explorer()
	ctx := m.ctx
	return func() tea.Msg {
		resp, err := ex.Unlock(ctx)
		return unlockedMsg{vertical: ex.Vertical(), resp: resp, err: err}
	}
}

// loginCmd выполняет вход (и регистрацию в режиме регистрации) и сохраняет сессию.
func (m *model) loginCmd(username, password string, register bool) tea.Cmd {
	client, sessions, ctx, serverURL := m.client, m.sessions, m.ctx, m.serverURL
	return func() tea.Msg {
		if register {
			if _, err := client.Register(ctx, username, password); err != nil {
				return loginResultMsg{username: username, err: err}
			}
		}
		resp, err := client.Login(ctx, username, password)
		if err != nil {
			return loginResultMsg{username: username, err: err}
		}
		s := session.Session{UserID: resp.UserID, Username: username, Token: resp.Token, ServerURL: serverURL}
		if err = sessions.SignIn(s); err != nil {
			slog.Error("Не удалось сохранить сессию", "error", err)
		}
		return loginResultMsg{username: username, resp: resp}
	}
}

// describeError переводит ошибку API в сообщение для пользователя.
func describeError(err error) string {
	var ice *api.InsufficientCreditsError
	var rle *api.RateLimitedError
	switch {
	case errors.As(err, &ice):
		return "Недостаточно кредитов: не хватает " + strconv.FormatInt(ice.Shortfall(), 10)
	case errors.As(err, &rle):
		return "Слишком много запросов, повторите через " + rle.RetryAfter.String()
	case errors.Is(err, api.ErrStorageUnavailable):
		return "Сервер недоступен, повторите попытку позже"
	case errors.Is(err, api.ErrAuthorization):
		return "Требуется вход"
	case errors.Is(err, api.ErrConflict):
		return "Имя пользователя занято"
	}
	return err.Error()
}
