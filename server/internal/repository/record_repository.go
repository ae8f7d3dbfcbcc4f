package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/lib/pq"
)

// RecordRepository читает записи вертикали. Содержимое записей не интерпретируется.
type RecordRepository interface {
	List(ctx context.Context, v verticals.Vertical, limit int) ([]map[string]any, error)
}

type postgresRecordRepository struct {
	q Querier
}

// NewPostgresRecordRepository создает репозиторий записей.
func NewPostgresRecordRepository(q Querier) RecordRepository {
	return &postgresRecordRepository{q: q}
}

// List возвращает первые limit записей по убыванию поля идентификатора.
func (r *postgresRecordRepository) List(ctx context.Context, v verticals.Vertical, limit int) ([]map[string]any, error) {
	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s DESC LIMIT $1`,
		pq.QuoteIdentifier(v.RecordTable), pq.QuoteIdentifier(v.RecordIDField))

	rows, err := r.q.QueryxContext(ctx, query, limit)
	if err != nil {
		log.Printf("[RecordRepo] Ошибка получения записей %s: %v", v.Key, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение записей: %w", err)
	}
	defer rows.Close()

	records := make([]map[string]any, 0, limit)
	for rows.Next() {
		rec := make(map[string]any)
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи %s: %w", v.Key, err)
		}
		normalizeRecord(rec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения записей %s: %w", v.Key, err)
	}
	return records, nil
}

// normalizeRecord превращает []byte из драйвера в строки, иначе JSON закодирует их в base64.
func normalizeRecord(rec map[string]any) {
	for k, val := range rec {
		if b, ok := val.([]byte); ok {
			rec[k] = string(b)
		}
	}
}

