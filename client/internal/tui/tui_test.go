//nolint:testpackage // Тесты в том же пакете для доступа к непубличным функциям
package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
	"github.com/ShakilAhmedRego/VMV5/models"
)

func TestMain(m *testing.M) {
	statusDuration = time.Millisecond
	os.Exit(m.Run())
}

// fakeClient - api.Client в памяти.
type fakeClient struct {
	mu       sync.Mutex
	balance  int64
	granted  map[string]bool
	loginErr error
	token    string
	unlocks  int
}

func newFakeClient(balance int64) *fakeClient {
	return &fakeClient{balance: balance, granted: map[string]bool{}}
}

func (c *fakeClient) Register(_ context.Context, username, _ string) (*models.User, error) {
	return &models.User{ID: "u-" + username, Username: username}, nil
}

func (c *fakeClient) Login(_ context.Context, username, _ string) (*models.LoginResponse, error) {
	if c.loginErr != nil {
		return nil, c.loginErr
	}
	c.SetAuthToken("token")
	return &models.LoginResponse{Token: "token", UserID: "u-" + username}, nil
}

func (c *fakeClient) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *fakeClient) Verticals(_ context.Context) ([]models.VerticalInfo, error) {
	return []models.VerticalInfo{
		{Key: "academicintel", Label: "Academic Research", IDField: "id"},
		{Key: "dealflow", Label: "Deal Flow", IDField: "id"},
		{Key: "legalintel", Label: "Legal Dockets", IDField: "id"},
	}, nil
}

func (c *fakeClient) Records(_ context.Context, vertical string) (*models.RecordsResponse, error) {
	return &models.RecordsResponse{Vertical: vertical, IDField: "id", Records: []models.Record{
		{"id": "r2", "company": "Acme"},
		{"id": "r1", "company": "Globex"},
	}}, nil
}

func (c *fakeClient) Grants(_ context.Context, _ string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for id := range c.granted {
		out = append(out, id)
	}
	return out, nil
}

func (c *fakeClient) Unlock(_ context.Context, vertical string, ids []string) (*models.UnlockResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlocks++
	if int64(len(ids)) > c.balance {
		return nil, &api.InsufficientCreditsError{Required: int64(len(ids)), Available: c.balance}
	}
	for _, id := range ids {
		c.granted[id] = true
	}
	c.balance -= int64(len(ids))
	balance := c.balance
	return &models.UnlockResponse{Vertical: vertical, Granted: ids, Charged: int64(len(ids)), Balance: &balance}, nil
}

func (c *fakeClient) Balance(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, nil
}

func (c *fakeClient) Ledger(_ context.Context, _ int) ([]models.LedgerEntry, error) { return nil, nil }
func (c *fakeClient) Audit(_ context.Context) (*models.AuditReport, error)          { return nil, nil }
func (c *fakeClient) CreateStatement(_ context.Context) (*models.StatementResponse, error) {
	return nil, nil
}
func (c *fakeClient) DownloadStatement(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run выполняет команду и передает результат в модель. Batch разворачивается.
func run(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			// Таймеры статуса и спиннера не выполняем
			if c == nil {
				continue
			}
			if inner := c(); inner != nil {
				if _, isTick := inner.(clearStatusMsg); isTick {
					continue
				}
				_, next := m.Update(inner)
				run(t, m, next)
			}
		}
		return
	}
	if _, isTick := msg.(clearStatusMsg); isTick {
		return
	}
	_, next := m.Update(msg)
	run(t, m, next)
}

func newSignedInModel(t *testing.T, c *fakeClient) *model {
	t.Helper()
	sessions := session.NewManager(nil)
	require.NoError(t, sessions.SignIn(session.Session{UserID: "u-alice", Username: "alice", Token: "token"}))
	m := initModel(c, sessions, "http://localhost:8443", "dealflow")
	t.Cleanup(m.cancel)
	run(t, m, m.loadVerticalsCmd())
	return m
}

func TestInitModel(t *testing.T) {
	t.Run("Без сессии - экран входа", func(t *testing.T) {
		m := initModel(newFakeClient(0), session.NewManager(nil), "http://localhost", "dealflow")
		defer m.cancel()
		assert.Equal(t, loginScreen, m.state)
		assert.Contains(t, m.View(), "Вход в учетную запись")
	})

	t.Run("С сессией - экран записей", func(t *testing.T) {
		m := newSignedInModel(t, newFakeClient(5))
		assert.Equal(t, explorerScreen, m.state)
		assert.Equal(t, 1, m.current, "выбранная вертикаль сохраняется после загрузки каталога")
		view := m.View()
		assert.Contains(t, view, "Deal Flow")
		assert.Contains(t, view, "Баланс: 5")
	})
}

func TestLoginScreen(t *testing.T) {
	t.Run("Успешный вход", func(t *testing.T) {
		sessions := session.NewManager(nil)
		m := initModel(newFakeClient(3), sessions, "http://localhost", "dealflow")
		defer m.cancel()

		m.Update(key("alice"))
		m.Update(key("enter"))
		assert.Equal(t, 1, m.focusedField)
		m.Update(key("secret"))
		_, cmd := m.Update(key("enter"))
		require.True(t, m.loggingIn)
		run(t, m, cmd)

		assert.False(t, m.loggingIn)
		assert.Equal(t, explorerScreen, m.state)
		id, ok := sessions.CurrentUserID()
		assert.True(t, ok)
		assert.Equal(t, "u-alice", id)
		assert.Empty(t, m.passwordInput.Value())
	})

	t.Run("Ошибка входа остается на экране", func(t *testing.T) {
		c := newFakeClient(3)
		c.loginErr = api.ErrAuthorization
		m := initModel(c, session.NewManager(nil), "http://localhost", "dealflow")
		defer m.cancel()

		m.usernameInput.SetValue("alice")
		m.passwordInput.SetValue("wrong")
		m.focusedField = 1
		_, cmd := m.Update(key("enter"))
		run(t, m, cmd)

		assert.Equal(t, loginScreen, m.state)
		require.ErrorIs(t, m.err, api.ErrAuthorization)
		assert.Contains(t, m.View(), "Требуется вход")
	})

	t.Run("Пустые поля", func(t *testing.T) {
		m := initModel(newFakeClient(0), session.NewManager(nil), "http://localhost", "dealflow")
		defer m.cancel()
		m.focusedField = 1
		_, cmd := m.Update(key("enter"))
		assert.Nil(t, cmd)
		require.Error(t, m.err)
	})

	t.Run("Режим регистрации и просмотр без входа", func(t *testing.T) {
		m := initModel(newFakeClient(0), session.NewManager(nil), "http://localhost", "dealflow")
		defer m.cancel()
		m.Update(key("ctrl+r"))
		assert.True(t, m.registerMode)
		assert.Contains(t, m.View(), "Регистрация")

		m.Update(key("esc"))
		assert.Equal(t, explorerScreen, m.state)
		assert.Contains(t, m.View(), "Войдите")
	})
}

func TestExplorerScreen(t *testing.T) {
	t.Run("Выбор и разблокировка", func(t *testing.T) {
		c := newFakeClient(5)
		m := newSignedInModel(t, c)
		ex := m.explorer()

		m.Update(key("space"))
		assert.Equal(t, []string{"r2"}, ex.Selected())
		m.Update(key("j"))
		m.Update(key("space"))
		assert.Contains(t, m.View(), "Стоимость: 2")

		_, cmd := m.Update(key("u"))
		run(t, m, cmd)

		assert.True(t, ex.Unlocked("r1"))
		assert.True(t, ex.Unlocked("r2"))
		assert.Contains(t, m.status, "списано: 2")
		view := m.View()
		assert.Contains(t, view, "Баланс: 3")
		assert.Contains(t, view, "company=Acme")
	})

	t.Run("Недостаточно кредитов", func(t *testing.T) {
		c := newFakeClient(1)
		m := newSignedInModel(t, c)
		m.Update(key("a"))
		view := m.View()
		assert.Contains(t, view, "не хватает 1")
		assert.Contains(t, view, "company="+maskedValue)

		assert.Contains(t, view, "разблокировка недоступна")

		for _, k := range []string{"u", "enter"} {
			_, cmd := m.Update(key(k))
			run(t, m, cmd)
			assert.Contains(t, m.status, "не хватает 1")
		}
		assert.Zero(t, c.unlocks, "разблокировка не отправляется")
		assert.NoError(t, m.err)
		assert.Len(t, m.explorer().Selected(), 2)
		balance, _ := m.explorer().Balance()
		assert.Equal(t, int64(1), balance)

		// После снятия лишней записи разблокировка снова доступна.
		m.Update(key("space"))
		_, cmd := m.Update(key("u"))
		run(t, m, cmd)
		assert.Equal(t, 1, c.unlocks)
	})

	t.Run("Переключение вертикалей по кругу", func(t *testing.T) {
		m := newSignedInModel(t, newFakeClient(1))
		_, cmd := m.Update(key("tab"))
		run(t, m, cmd)
		assert.Equal(t, "legalintel", m.currentKey())
		m.Update(key("tab"))
		assert.Equal(t, "academicintel", m.currentKey())
		m.Update(key("h"))
		assert.Equal(t, "legalintel", m.currentKey())
	})

	t.Run("Выход из учетной записи", func(t *testing.T) {
		c := newFakeClient(1)
		c.SetAuthToken("token")
		m := newSignedInModel(t, c)
		m.Update(key("space"))
		m.Update(key("o"))
		assert.Empty(t, c.token, "токен сброшен")
		assert.False(t, m.explorer().SignedIn())
		assert.Empty(t, m.explorer().Selected())

		m.Update(key("u"))
		assert.Equal(t, loginScreen, m.state)
	})
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&api.InsufficientCreditsError{Required: 3, Available: 1}, "не хватает 2"},
		{&api.RateLimitedError{}, "Слишком много запросов"},
		{api.ErrStorageUnavailable, "Сервер недоступен"},
		{&api.Error{Status: 401}, "Требуется вход"},
		{&api.Error{Status: 409}, "занято"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.True(t, strings.Contains(describeError(tt.err), tt.want), "%v -> %s", tt.err, describeError(tt.err))
	}
}
