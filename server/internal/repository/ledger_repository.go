package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/jmoiron/sqlx"
)

// LedgerRepository - доступ к журналу кредитов credit_ledger.
// Журнал только дополняется, методов изменения и удаления нет.
type LedgerRepository interface {
	// Lock берет транзакционную advisory-блокировку пользователя.
	// Вызывается только внутри транзакции, снимается при её завершении.
	Lock(ctx context.Context, userID string) error
	Sum(ctx context.Context, userID string) (int64, error)
	Append(ctx context.Context, entry *models.LedgerEntry) error
	List(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	DebitsByVertical(ctx context.Context, userID string) ([]models.VerticalDebit, error)
}

type postgresLedgerRepository struct {
	q Querier
}

// NewPostgresLedgerRepository создает репозиторий журнала.
func NewPostgresLedgerRepository(q Querier) LedgerRepository {
	return &postgresLedgerRepository{q: q}
}

func (r *postgresLedgerRepository) Lock(ctx context.Context, userID string) error {
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		log.Printf("[LedgerRepo] Ошибка блокировки пользователя %s: %v", userID, err)
		return fmt.Errorf("ошибка выполнения запроса на блокировку пользователя: %w", err)
	}
	return nil
}

// Sum возвращает сумму всех изменений баланса пользователя.
// Хранимого баланса нет: журнал - единственный источник истины.
func (r *postgresLedgerRepository) Sum(ctx context.Context, userID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = $1`
	if err := r.q.QueryRowxContext(ctx, query, userID).Scan(&sum); err != nil {
		log.Printf("[LedgerRepo] Ошибка подсчета баланса пользователя %s: %v", userID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на подсчет баланса: %w", err)
	}
	return sum, nil
}

// Append добавляет запись в журнал и заполняет её ID и время создания.
func (r *postgresLedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	query := `INSERT INTO credit_ledger (user_id, delta, reason, vertical) VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at`
	err := r.q.QueryRowxContext(ctx, query, entry.UserID, entry.Delta, entry.Reason, entry.Vertical).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		log.Printf("[LedgerRepo] Ошибка добавления записи (%s, %+d) для пользователя %s: %v",
			entry.Reason, entry.Delta, entry.UserID, err)
		return fmt.Errorf("ошибка выполнения запроса на добавление записи журнала: %w", err)
	}
	log.Printf("[LedgerRepo] Запись журнала ID %d: пользователь %s, %+d (%s)",
		entry.ID, entry.UserID, entry.Delta, entry.Reason)
	return nil
}

// List возвращает последние записи журнала пользователя, сначала новые.
func (r *postgresLedgerRepository) List(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	query := `SELECT id, user_id, delta, reason, vertical, created_at
	          FROM credit_ledger
	          WHERE user_id = $1
	          ORDER BY id DESC
	          LIMIT $2`
	entries := make([]models.LedgerEntry, 0, limit)
	if err := sqlx.SelectContext(ctx, r.q, &entries, query, userID, limit); err != nil {
		log.Printf("[LedgerRepo] Ошибка получения журнала пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение журнала: %w", err)
	}
	return entries, nil
}

// DebitsByVertical суммирует списания за разблокировку по вертикалям.
func (r *postgresLedgerRepository) DebitsByVertical(ctx context.Context, userID string) ([]models.VerticalDebit, error) {
	query := `SELECT vertical, -SUM(delta) AS debited
	          FROM credit_ledger
	          WHERE user_id = $1 AND reason = $2 AND vertical IS NOT NULL
	          GROUP BY vertical
	          ORDER BY vertical`
	var debits []models.VerticalDebit
	if err := sqlx.SelectContext(ctx, r.q, &debits, query, userID, models.ReasonUnlock); err != nil {
		log.Printf("[LedgerRepo] Ошибка подсчета списаний пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на подсчет списаний: %w", err)
	}
	return debits, nil
}
