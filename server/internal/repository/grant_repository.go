package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// GrantRepository - доступ к таблицам выданных доступов вертикалей.
// Таблица и колонка идентификатора берутся из описания вертикали.
type GrantRepository interface {
	// EnsureTable создает таблицу доступов вертикали, если её нет.
	EnsureTable(ctx context.Context, v verticals.Vertical) error
	List(ctx context.Context, v verticals.Vertical, userID string) ([]string, error)
	// ListAmong возвращает те из ids, доступ к которым уже выдан.
	ListAmong(ctx context.Context, v verticals.Vertical, userID string, ids []string) ([]string, error)
	// Insert добавляет доступы, пропуская уже существующие, и возвращает число вставленных строк.
	Insert(ctx context.Context, v verticals.Vertical, userID string, ids []string) (int64, error)
	Count(ctx context.Context, v verticals.Vertical, userID string) (int64, error)
}

type postgresGrantRepository struct {
	q Querier
}

// NewPostgresGrantRepository создает репозиторий доступов.
func NewPostgresGrantRepository(q Querier) GrantRepository {
	return &postgresGrantRepository{q: q}
}

// grantNames возвращает экранированные имена таблицы и колонки идентификатора.
func grantNames(v verticals.Vertical) (table, idField string) {
	return pq.QuoteIdentifier(v.GrantTable), pq.QuoteIdentifier(v.GrantIDField)
}

func (r *postgresGrantRepository) EnsureTable(ctx context.Context, v verticals.Vertical) error {
	table, idField := grantNames(v)
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	    user_id TEXT NOT NULL,
	    %s TEXT NOT NULL,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	    PRIMARY KEY (user_id, %s)
	)`, table, idField, idField)
	if _, err := r.q.ExecContext(ctx, query); err != nil {
		log.Printf("[GrantRepo] Ошибка создания таблицы %s: %v", v.GrantTable, err)
		return fmt.Errorf("ошибка создания таблицы доступов %s: %w", v.GrantTable, err)
	}
	return nil
}

func (r *postgresGrantRepository) List(ctx context.Context, v verticals.Vertical, userID string) ([]string, error) {
	table, idField := grantNames(v)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1`, idField, table)
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.q, &ids, query, userID); err != nil {
		log.Printf("[GrantRepo] Ошибка получения доступов %s пользователя %s: %v", v.Key, userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение доступов: %w", err)
	}
	return ids, nil
}

func (r *postgresGrantRepository) ListAmong(ctx context.Context, v verticals.Vertical, userID string, ids []string) ([]string, error) {
	table, idField := grantNames(v)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 AND %s = ANY($2::text[])`, idField, table, idField)
	granted := []string{}
	if err := sqlx.SelectContext(ctx, r.q, &granted, query, userID, pq.Array(ids)); err != nil {
		log.Printf("[GrantRepo] Ошибка проверки доступов %s пользователя %s: %v", v.Key, userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на проверку доступов: %w", err)
	}
	return granted, nil
}

func (r *postgresGrantRepository) Insert(ctx context.Context, v verticals.Vertical, userID string, ids []string) (int64, error) {
	table, idField := grantNames(v)
	query := fmt.Sprintf(`INSERT INTO %s (user_id, %s)
	          SELECT $1, unnest($2::text[])
	          ON CONFLICT DO NOTHING`, table, idField)
	res, err := r.q.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		log.Printf("[GrantRepo] Ошибка выдачи доступов %s пользователю %s: %v", v.Key, userID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на выдачу доступов: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения числа вставленных доступов: %w", err)
	}
	log.Printf("[GrantRepo] Пользователю %s выдано %d доступов в %s", userID, n, v.Key)
	return n, nil
}

func (r *postgresGrantRepository) Count(ctx context.Context, v verticals.Vertical, userID string) (int64, error) {
	table, _ := grantNames(v)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table)
	var n int64
	if err := r.q.QueryRowxContext(ctx, query, userID).Scan(&n); err != nil {
		log.Printf("[GrantRepo] Ошибка подсчета доступов %s пользователя %s: %v", v.Key, userID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на подсчет доступов: %w", err)
	}
	return n, nil
}
