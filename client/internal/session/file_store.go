package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const sessionFilePermissions = 0o600

// FileStore хранит сессию в JSON-файле. Несколько клиентов на одной машине
// синхронизируются файловой блокировкой <path>.lock.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore создает хранилище. Каталог файла создается при первой записи.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path возвращает путь к файлу сессии.
func (f *FileStore) Path() string { return f.path }

// Load читает сессию. Если файла нет, возвращает nil без ошибки.
func (f *FileStore) Load() (*Session, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	defer f.unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла сессии: %w", err)
	}
	var s Session
	if err = json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("поврежден файл сессии %s: %w", f.path, err)
	}
	return &s, nil
}

// Save атомарно перезаписывает файл сессии.
func (f *FileStore) Save(s *Session) error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка кодирования сессии: %w", err)
	}
	if err = f.lock.Lock(); err != nil {
		return fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	defer f.unlock()

	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, data, sessionFilePermissions); err != nil {
		return fmt.Errorf("ошибка записи файла сессии: %w", err)
	}
	if err = os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка замены файла сессии: %w", err)
	}
	return nil
}

// Clear удаляет файл сессии.
func (f *FileStore) Clear() error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	defer f.unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла сессии: %w", err)
	}
	return nil
}

func (f *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога сессии: %w", err)
	}
	return nil
}

func (f *FileStore) unlock() {
	if err := f.lock.Unlock(); err != nil {
		slog.Error("Ошибка при снятии блокировки файла", "lockPath", f.lock.Path(), "error", err)
	}
}
