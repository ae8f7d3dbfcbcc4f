package services

import (
	"context"

	apimodels "github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
)

// RecordsService отдает записи вертикали без разбора их содержимого.
type RecordsService struct {
	db    *sqlx.DB
	repos repository.Manager
}

// NewRecordsService создает сервис записей.
func NewRecordsService(db *sqlx.DB, repos repository.Manager) *RecordsService {
	return &RecordsService{db: db, repos: repos}
}

// List возвращает первые apimodels.MaxRecords записей по убыванию ID. Пагинации нет.
func (s *RecordsService) List(ctx context.Context, v verticals.Vertical) ([]apimodels.Record, error) {
	rows, err := s.repos.Records(s.db).List(ctx, v, apimodels.MaxRecords)
	if err != nil {
		return nil, storageErr(err)
	}
	records := make([]apimodels.Record, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	return records, nil
}
