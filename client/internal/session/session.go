// Package session хранит текущую сессию клиента и оповещает подписчиков о ее смене.
package session

import (
	"errors"
	"log/slog"
	"sync"
)

// Session - данные входа пользователя.
type Session struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	ServerURL string `json:"server_url"`
}

// Provider отдает текущего пользователя и уведомляет о его смене.
// Пустая строка в уведомлении означает выход.
type Provider interface {
	CurrentUserID() (string, bool)
	Subscribe() (<-chan string, func())
}

// Store сохраняет сессию между запусками клиента.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// ErrInvalidSession - попытка войти без пользователя или токена.
var ErrInvalidSession = errors.New("сессия без пользователя или токена")

// Manager реализует Provider. Безопасен для конкурентного использования.
type Manager struct {
	store Store

	mu      sync.RWMutex
	current *Session
	subs    map[int]chan string
	nextSub int
}

// NewManager создает менеджер сессии. store может быть nil, тогда сессия живет только в памяти.
func NewManager(store Store) *Manager {
	return &Manager{store: store, subs: make(map[int]chan string)}
}

// Restore загружает сохраненную сессию, если она есть.
func (m *Manager) Restore() (*Session, error) {
	if m.store == nil {
		return nil, nil
	}
	s, err := m.store.Load()
	if err != nil || s == nil {
		return nil, err
	}
	if s.UserID == "" || s.Token == "" {
		slog.Warn("Сохраненная сессия неполная, игнорируем")
		return nil, nil
	}
	m.set(s)
	slog.Info("Сессия восстановлена", "user_id", s.UserID, "username", s.Username)
	return s, nil
}

// SignIn делает s текущей сессией и сохраняет ее.
func (m *Manager) SignIn(s Session) error {
	if s.UserID == "" || s.Token == "" {
		return ErrInvalidSession
	}
	if m.store != nil {
		if err := m.store.Save(&s); err != nil {
			return err
		}
	}
	m.set(&s)
	slog.Info("Пользователь вошел", "user_id", s.UserID, "username", s.Username)
	return nil
}

// SignOut завершает сессию.
func (m *Manager) SignOut() error {
	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			return err
		}
	}
	m.set(nil)
	slog.Info("Пользователь вышел")
	return nil
}

// Current возвращает копию текущей сессии.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

func (m *Manager) CurrentUserID() (string, bool) {
	s, ok := m.Current()
	return s.UserID, ok
}

// Subscribe возвращает канал смены пользователя и функцию отписки.
// Канал хранит только последнее значение: медленный подписчик пропускает промежуточные.
func (m *Manager) Subscribe() (<-chan string, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan string, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := ""
	if m.current != nil {
		prev = m.current.UserID
	}
	m.current = s
	next := ""
	if s != nil {
		next = s.UserID
	}
	if prev == next {
		return
	}
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
