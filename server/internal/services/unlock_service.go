package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
)

// MaxUnlockIDs - наибольшее число ID в одном запросе разблокировки.
const MaxUnlockIDs = 1000

// UnlockResult - итог разблокировки.
type UnlockResult struct {
	Vertical string
	// Granted - ID, доступ к которым выдан этим вызовом, по возрастанию.
	Granted []string
	Charged int64
	// Balance - баланс после фиксации. Значим только при BalanceKnown.
	Balance      int64
	BalanceKnown bool
}

// UnlockService выполняет транзакцию разблокировки: списание и выдачу доступов
// одной транзакцией PostgreSQL. Это единственный код, который пишет доступы
// и списания в журнал.
type UnlockService struct {
	db    *sqlx.DB
	repos repository.Manager
}

// NewUnlockService создает сервис разблокировки.
func NewUnlockService(db *sqlx.DB, repos repository.Manager) *UnlockService {
	return &UnlockService{db: db, repos: repos}
}

// Unlock выдает пользователю доступ к requested в вертикали v.
// Каждый новый ID стоит один кредит, уже открытые бесплатны.
// Либо записываются и списание, и все доступы, либо ничего.
func (s *UnlockService) Unlock(ctx context.Context, v verticals.Vertical, userID string, requested []string) (*UnlockResult, error) {
	ids := NormalizeIDs(requested)
	if len(ids) > MaxUnlockIDs {
		return nil, fmt.Errorf("%w: не более %d ID за раз", ErrInvalidRequest, MaxUnlockIDs)
	}
	result := &UnlockResult{Vertical: v.Key, Granted: []string{}}

	// Предварительная проверка вне транзакции: повторный выбор открытых записей
	// не должен брать блокировку.
	toCharge, err := s.pending(ctx, s.db, v, userID, ids)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(toCharge) == 0 {
		// Списания нет: сбой чтения баланса не считается ошибкой вызова.
		if result.Balance, err = balanceOf(ctx, s.repos.Ledger(s.db), userID); err != nil {
			log.Printf("[UnlockService:Unlock] %s/%s: баланс не прочитан: %v", v.Key, userID, err)
		} else {
			result.BalanceKnown = true
		}
		log.Printf("[UnlockService:Unlock] %s/%s: все %d записей уже открыты", v.Key, userID, len(ids))
		return result, nil
	}

	err = repository.WithTx(ctx, s.db, func(ctx context.Context, tx repository.Querier) error {
		ledger := s.repos.Ledger(tx)
		// Все изменения журнала пользователя идут строго по очереди.
		if err := ledger.Lock(ctx, userID); err != nil {
			return err
		}

		// Под блокировкой перечитываем доступы: параллельный вызов мог уже открыть часть записей.
		toCharge, err := s.pending(ctx, tx, v, userID, ids)
		if err != nil {
			return err
		}
		balance, err := ledger.Sum(ctx, userID)
		if err != nil {
			return err
		}
		if len(toCharge) == 0 {
			result.Balance, result.BalanceKnown = balance, true
			return nil
		}

		cost := int64(len(toCharge))
		if balance < cost {
			return &InsufficientCreditsError{Required: cost, Available: balance}
		}

		vertical := v.Key
		debit := &models.LedgerEntry{UserID: userID, Delta: -cost, Reason: models.ReasonUnlock, Vertical: &vertical}
		if err := ledger.Append(ctx, debit); err != nil {
			return err
		}

		inserted, err := s.repos.Grants(tx).Insert(ctx, v, userID, toCharge)
		if err != nil {
			return err
		}
		if inserted != cost {
			return fmt.Errorf("%w: списано %d, выдано доступов %d", ErrInvariantViolation, cost, inserted)
		}

		result.Granted = toCharge
		result.Charged = cost
		result.Balance, result.BalanceKnown = balance-cost, true
		return nil
	})
	if err != nil {
		log.Printf("[UnlockService:Unlock] %s/%s: разблокировка %d записей отменена: %v", v.Key, userID, len(ids), err)
		return nil, storageErr(err)
	}

	log.Printf("[UnlockService:Unlock] %s/%s: открыто %d, списано %d, баланс %d",
		v.Key, userID, len(result.Granted), result.Charged, result.Balance)
	return result, nil
}

// pending возвращает отсортированные ids, доступ к которым ещё не выдан.
func (s *UnlockService) pending(ctx context.Context, q repository.Querier, v verticals.Vertical, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	granted, err := s.repos.Grants(q).ListAmong(ctx, v, userID, ids)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(granted))
	for _, id := range granted {
		have[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// NormalizeIDs обрезает пробелы, убирает пустые и повторяющиеся ID и сортирует результат.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
