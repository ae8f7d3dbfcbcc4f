package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Ограничения выборки журнала.
const (
	DefaultLedgerLimit = 50
	MaxLedgerLimit     = 500
)

// LedgerService вычисляет баланс и пополняет журнал кредитов.
// Баланс всегда пересчитывается по журналу, кэша нет.
type LedgerService struct {
	db    *sqlx.DB
	repos repository.Manager
}

// NewLedgerService создает сервис журнала.
func NewLedgerService(db *sqlx.DB, repos repository.Manager) *LedgerService {
	return &LedgerService{db: db, repos: repos}
}

// Balance возвращает сумму всех записей журнала пользователя.
// Ошибка чтения никогда не превращается в нулевой баланс.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	return balanceOf(ctx, s.repos.Ledger(s.db), userID)
}

func balanceOf(ctx context.Context, ledger repository.LedgerRepository, userID string) (int64, error) {
	sum, err := ledger.Sum(ctx, userID)
	if err != nil {
		return 0, storageErr(err)
	}
	if sum < 0 {
		log.Printf("[LedgerService:Balance] %v: отрицательный баланс %d у пользователя %s",
			ErrInvariantViolation, sum, userID)
	}
	return sum, nil
}

// Entries возвращает последние записи журнала. limit приводится к [1, MaxLedgerLimit].
func (s *LedgerService) Entries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLedgerLimit
	case limit > MaxLedgerLimit:
		limit = MaxLedgerLimit
	}
	entries, err := s.repos.Ledger(s.db).List(ctx, userID, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// Credit начисляет пользователю amount кредитов и возвращает новый баланс.
// Начисление идет под той же блокировкой пользователя, что и разблокировка.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: сумма начисления должна быть положительной", ErrInvalidRequest)
	}

	var balance int64
	err := repository.WithTx(ctx, s.db, func(ctx context.Context, tx repository.Querier) error {
		if _, err := s.repos.Users(tx).GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		ledger := s.repos.Ledger(tx)
		if err := ledger.Lock(ctx, userID); err != nil {
			return err
		}
		if err := s.CreditTx(ctx, tx, userID, amount, reason); err != nil {
			return err
		}
		var err error
		balance, err = ledger.Sum(ctx, userID)
		return err
	})
	if err != nil {
		log.Printf("[LedgerService:Credit] Ошибка начисления %d пользователю %s: %v", amount, userID, err)
		return 0, storageErr(err)
	}

	log.Printf("[LedgerService:Credit] Пользователю %s начислено %d (%s), баланс %d", userID, amount, reason, balance)
	return balance, nil
}

// CreditTx добавляет положительную запись в журнал внутри уже открытой транзакции.
func (s *LedgerService) CreditTx(ctx context.Context, tx repository.Querier, userID string, amount int64, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: сумма начисления должна быть положительной", ErrInvalidRequest)
	}
	entry := &models.LedgerEntry{UserID: userID, Delta: amount, Reason: reason}
	return s.repos.Ledger(tx).Append(ctx, entry)
}
