package services

import (
	"context"

	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
)

// AccessService читает выданные доступы. Записывает их только UnlockService.
type AccessService struct {
	db    *sqlx.DB
	repos repository.Manager
}

// NewAccessService создает сервис доступов.
func NewAccessService(db *sqlx.DB, repos repository.Manager) *AccessService {
	return &AccessService{db: db, repos: repos}
}

// Granted возвращает множество ID, доступ к которым выдан пользователю.
// Если доступов нет, возвращается пустое множество.
func (s *AccessService) Granted(ctx context.Context, v verticals.Vertical, userID string) (map[string]struct{}, error) {
	ids, err := s.repos.Grants(s.db).List(ctx, v, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// EnsureTables создает таблицы доступов для всех вертикалей реестра.
func (s *AccessService) EnsureTables(ctx context.Context, reg *verticals.Registry) error {
	grants := s.repos.Grants(s.db)
	for _, v := range reg.List() {
		if err := grants.EnsureTable(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
