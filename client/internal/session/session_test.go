package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("уведомление не пришло")
		return ""
	}
}

func TestManager(t *testing.T) {
	t.Run("Вход, смена пользователя и выход", func(t *testing.T) {
		m := session.NewManager(nil)
		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		_, ok := m.CurrentUserID()
		assert.False(t, ok)

		require.NoError(t, m.SignIn(session.Session{UserID: "u-1", Token: "t"}))
		assert.Equal(t, "u-1", receive(t, ch))
		id, ok := m.CurrentUserID()
		assert.True(t, ok)
		assert.Equal(t, "u-1", id)

		require.NoError(t, m.SignIn(session.Session{UserID: "u-2", Token: "t"}))
		assert.Equal(t, "u-2", receive(t, ch))

		require.NoError(t, m.SignOut())
		assert.Equal(t, "", receive(t, ch))
		_, ok = m.CurrentUserID()
		assert.False(t, ok)
	})

	t.Run("Повторный вход тем же пользователем не уведомляет", func(t *testing.T) {
		m := session.NewManager(nil)
		require.NoError(t, m.SignIn(session.Session{UserID: "u-1", Token: "t1"}))
		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		require.NoError(t, m.SignIn(session.Session{UserID: "u-1", Token: "t2"}))
		select {
		case v := <-ch:
			t.Fatalf("неожиданное уведомление %q", v)
		default:
		}
		s, _ := m.Current()
		assert.Equal(t, "t2", s.Token)
	})

	t.Run("Медленный подписчик видит последнее значение", func(t *testing.T) {
		m := session.NewManager(nil)
		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		require.NoError(t, m.SignIn(session.Session{UserID: "u-1", Token: "t"}))
		require.NoError(t, m.SignIn(session.Session{UserID: "u-2", Token: "t"}))
		assert.Equal(t, "u-2", receive(t, ch))
	})

	t.Run("Отписка закрывает канал", func(t *testing.T) {
		m := session.NewManager(nil)
		ch, unsubscribe := m.Subscribe()
		unsubscribe()
		unsubscribe()
		_, open := <-ch
		assert.False(t, open)
		require.NoError(t, m.SignIn(session.Session{UserID: "u-1", Token: "t"}))
	})

	t.Run("Неполная сессия отклоняется", func(t *testing.T) {
		m := session.NewManager(nil)
		require.ErrorIs(t, m.SignIn(session.Session{UserID: "u-1"}), session.ErrInvalidSession)
	})

	t.Run("Восстановление из файла", func(t *testing.T) {
		store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
		require.NoError(t, session.NewManager(store).SignIn(session.Session{UserID: "u-1", Username: "alice", Token: "t"}))

		m := session.NewManager(store)
		s, err := m.Restore()
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "alice", s.Username)
		id, ok := m.CurrentUserID()
		assert.True(t, ok)
		assert.Equal(t, "u-1", id)

		require.NoError(t, m.SignOut())
		s, err = session.NewManager(store).Restore()
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

func TestFileStore(t *testing.T) {
	t.Run("Нет файла", func(t *testing.T) {
		store := session.NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
		s, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, s)
		require.NoError(t, store.Clear())
	})

	t.Run("Запись и чтение", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := session.NewFileStore(path)
		in := &session.Session{UserID: "u-1", Username: "alice", Token: "t", ServerURL: "http://localhost:8443"}
		require.NoError(t, store.Save(in))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		out, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Поврежденный файл", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := session.NewFileStore(path).Load()
		require.Error(t, err)
	})

	t.Run("Блокировка снимается после записи", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := session.NewFileStore(path)
		require.NoError(t, store.Save(&session.Session{UserID: "u-1", Token: "t"}))

		other := flock.New(path + ".lock")
		locked, err := other.TryLock()
		require.NoError(t, err)
		assert.True(t, locked)
		require.NoError(t, other.Unlock())
	})
}
