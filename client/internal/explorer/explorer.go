// Package explorer - модель представления одной вертикали: записи, доступы, баланс,
// выбор записей и разблокировка. Одна реализация обслуживает все вертикали.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
	"github.com/ShakilAhmedRego/VMV5/models"
)

var (
	// ErrUnlockInProgress - разблокировка уже выполняется.
	ErrUnlockInProgress = errors.New("разблокировка уже выполняется")
	// ErrNoSession - действие требует входа.
	ErrNoSession = errors.New("требуется вход")
)

// Backend - сетевые операции, нужные модели. Реализуется api.Client.
type Backend interface {
	Records(ctx context.Context, vertical string) (*models.RecordsResponse, error)
	Grants(ctx context.Context, vertical string) ([]string, error)
	Balance(ctx context.Context) (int64, error)
	Unlock(ctx context.Context, vertical string, ids []string) (*models.UnlockResponse, error)
}

// Explorer хранит состояние вертикали для текущего пользователя.
// Методы безопасны для вызова из нескольких горутин.
type Explorer struct {
	vertical string
	backend  Backend
	session  session.Provider

	mu         sync.RWMutex
	userID     string
	idField    string
	records    []models.Record
	granted    map[string]struct{}
	balance    int64
	hasBalance bool
	selected   map[string]struct{}
	unlocking  bool
	err        error
}

// New создает модель вертикали.
func New(vertical string, backend Backend, provider session.Provider) *Explorer {
	return &Explorer{
		vertical: vertical,
		backend:  backend,
		session:  provider,
		granted:  make(map[string]struct{}),
		selected: make(map[string]struct{}),
	}
}

// Vertical возвращает ключ вертикали.
func (e *Explorer) Vertical() string { return e.vertical }

// Load загружает записи, доступы и баланс параллельно.
// Без пользователя загружаются только записи. При ошибке прежнее состояние сохраняется.
func (e *Explorer) Load(ctx context.Context) error {
	userID, signedIn := e.session.CurrentUserID()

	var (
		recs    *models.RecordsResponse
		grants  []string
		balance int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = e.backend.Records(gctx, e.vertical)
		return err
	})
	if signedIn {
		g.Go(func() error {
			var err error
			grants, err = e.backend.Grants(gctx, e.vertical)
			return err
		})
		g.Go(func() error {
			var err error
			balance, err = e.backend.Balance(gctx)
			return err
		})
	}
	err := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		slog.Error("Ошибка загрузки вертикали", "vertical", e.vertical, "error", err)
		e.err = err
		return err
	}
	if current, ok := e.session.CurrentUserID(); ok != signedIn || current != userID {
		// Пока шла загрузка, пользователь сменился: результат относится к другой сессии.
		slog.Debug("Результат загрузки устарел", "vertical", e.vertical)
		return nil
	}

	if e.userID != userID {
		e.selected = make(map[string]struct{})
	}
	e.userID = userID
	e.idField = recs.IDField
	e.records = recs.Records
	e.granted = toSet(grants)
	e.balance = balance
	e.hasBalance = signedIn
	e.err = nil
	slog.Debug("Вертикаль загружена",
		"vertical", e.vertical, "records", len(e.records), "granted", len(e.granted), "signed_in", signedIn)
	return nil
}

// Reset возвращает модель в пустое состояние пользователя: без баланса, доступов и выбора.
func (e *Explorer) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = ""
	e.granted = make(map[string]struct{})
	e.selected = make(map[string]struct{})
	e.balance = 0
	e.hasBalance = false
	e.err = nil
}

// Watch следит за сменой пользователя: при выходе сбрасывает состояние, при входе перезагружает.
// onChange вызывается после каждого изменения. Возвращается при отмене ctx.
func (e *Explorer) Watch(ctx context.Context, onChange func()) {
	ch, unsubscribe := e.session.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-ch:
			if !ok {
				return
			}
			if userID == "" {
				e.Reset()
			} else {
				_ = e.Load(ctx)
			}
			if onChange != nil {
				onChange()
			}
		}
	}
}

// Records возвращает загруженные записи (первые models.MaxRecords по убыванию идентификатора).
func (e *Explorer) Records() []models.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Record, len(e.records))
	copy(out, e.records)
	return out
}

// IDField возвращает имя поля-идентификатора записей.
func (e *Explorer) IDField() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idField
}

// RecordID возвращает идентификатор записи в строковом виде.
func (e *Explorer) RecordID(r models.Record) string {
	return recordID(r, e.IDField())
}

// SignedIn сообщает, загружено ли состояние пользователя.
func (e *Explorer) SignedIn() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasBalance
}

// Unlocked сообщает, разблокирована ли запись.
func (e *Explorer) Unlocked(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.granted[id]
	return ok
}

// Balance возвращает баланс. false - пользователь не вошел или баланс еще не загружен.
func (e *Explorer) Balance() (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance, e.hasBalance
}

// Toggle добавляет запись в выбор или убирает из него.
func (e *Explorer) Toggle(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.selected[id]; ok {
		delete(e.selected, id)
		return
	}
	e.selected[id] = struct{}{}
}

// SelectAll выбирает все загруженные записи.
func (e *Explorer) SelectAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.records {
		if id := recordID(r, e.idField); id != "" {
			e.selected[id] = struct{}{}
		}
	}
}

// Clear снимает выбор.
func (e *Explorer) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = make(map[string]struct{})
}

// IsSelected сообщает, выбрана ли запись.
func (e *Explorer) IsSelected(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.selected[id]
	return ok
}

// Selected возвращает выбранные идентификаторы по возрастанию.
func (e *Explorer) Selected() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.selected)
}

// PendingIDs возвращает выбранные, но еще не разблокированные идентификаторы.
func (e *Explorer) PendingIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pendingLocked()
}

// Cost - сколько кредитов спишет разблокировка текущего выбора.
func (e *Explorer) Cost() int64 {
	return int64(len(e.PendingIDs()))
}

// CanAfford сообщает, хватает ли баланса на текущий выбор.
func (e *Explorer) CanAfford() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasBalance && e.balance >= int64(len(e.pendingLocked()))
}

// Shortfall - сколько кредитов не хватает на текущий выбор.
func (e *Explorer) Shortfall() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if d := int64(len(e.pendingLocked())) - e.balance; d > 0 {
		return d
	}
	return 0
}

// Unlocking сообщает, выполняется ли разблокировка.
func (e *Explorer) Unlocking() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unlocking
}

// Err возвращает последнюю ошибку загрузки или разблокировки.
func (e *Explorer) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Unlock разблокирует выбранные новые записи. Если новых нет, ничего не делает и возвращает nil, nil.
// Если стоимость больше известного баланса, запрос не отправляется: возвращается *api.InsufficientCreditsError.
// При успехе доступы дополняются, баланс перечитывается, выбор снимается.
// При ошибке выбор сохраняется, доступы и баланс перечитываются с сервера.
func (e *Explorer) Unlock(ctx context.Context) (*models.UnlockResponse, error) {
	e.mu.Lock()
	if e.unlocking {
		e.mu.Unlock()
		return nil, ErrUnlockInProgress
	}
	if !e.hasBalance {
		e.mu.Unlock()
		return nil, ErrNoSession
	}
	pending := e.pendingLocked()
	if len(pending) == 0 {
		e.mu.Unlock()
		return nil, nil
	}
	if cost := int64(len(pending)); cost > e.balance {
		err := &api.InsufficientCreditsError{Required: cost, Available: e.balance}
		e.err = err
		e.mu.Unlock()
		slog.Info("Недостаточно кредитов, разблокировка не отправлена",
			"vertical", e.vertical, "cost", cost, "balance", err.Available)
		return nil, err
	}
	e.unlocking = true
	userID := e.userID
	e.mu.Unlock()

	resp, err := e.backend.Unlock(ctx, e.vertical, pending)
	if err != nil {
		e.resync(ctx, userID, err)
		return nil, err
	}

	balance, balanceErr := e.backend.Balance(ctx)
	balanceKnown := balanceErr == nil
	if !balanceKnown && resp.Balance != nil {
		slog.Warn("Не удалось перечитать баланс, используем ответ разблокировки",
			"vertical", e.vertical, "error", balanceErr)
		balance, balanceKnown = *resp.Balance, true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.unlocking = false
	if e.userID != userID {
		return resp, nil
	}
	for _, id := range resp.Granted {
		e.granted[id] = struct{}{}
	}
	if balanceKnown {
		e.balance = balance
	} else {
		slog.Warn("Баланс неизвестен, вычитаем списание из прежнего", "vertical", e.vertical)
		e.balance -= resp.Charged
	}
	e.selected = make(map[string]struct{})
	e.err = nil
	return resp, nil
}

// resync перечитывает доступы и баланс после неудачной разблокировки.
func (e *Explorer) resync(ctx context.Context, userID string, cause error) {
	var (
		grants  []string
		balance int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grants, err = e.backend.Grants(gctx, e.vertical)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = e.backend.Balance(gctx)
		return err
	})
	syncErr := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.unlocking = false
	e.err = cause
	if syncErr != nil {
		slog.Error("Не удалось перечитать состояние после ошибки разблокировки",
			"vertical", e.vertical, "cause", cause, "error", syncErr)
		return
	}
	if e.userID != userID {
		return
	}
	e.granted = toSet(grants)
	e.balance = balance
	var ice *api.InsufficientCreditsError
	if errors.As(cause, &ice) {
		slog.Info("Недостаточно кредитов", "vertical", e.vertical,
			"required", ice.Required, "available", ice.Available, "balance", balance)
	}
}

func (e *Explorer) pendingLocked() []string {
	out := make([]string, 0, len(e.selected))
	for id := range e.selected {
		if _, ok := e.granted[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func recordID(r models.Record, field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
