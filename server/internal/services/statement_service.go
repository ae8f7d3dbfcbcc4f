package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	apimodels "github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// statementMaxEntries ограничивает размер одной выписки.
const statementMaxEntries = 100000

// StatementService формирует CSV-выписки по журналу кредитов и хранит их в объектном хранилище.
type StatementService struct {
	db    *sqlx.DB
	repos repository.Manager
	store storage.ObjectStore
}

// NewStatementService создает сервис выписок. store может быть nil, тогда выписки отключены.
func NewStatementService(db *sqlx.DB, repos repository.Manager, store storage.ObjectStore) *StatementService {
	return &StatementService{db: db, repos: repos, store: store}
}

func statementKey(userID, id string) string {
	return fmt.Sprintf("statements/%s/%s.csv", userID, id)
}

// Create выгружает весь журнал пользователя в CSV, от старых записей к новым,
// с нарастающим балансом в последней колонке.
func (s *StatementService) Create(ctx context.Context, userID string) (*apimodels.StatementResponse, error) {
	if s.store == nil {
		return nil, ErrStatementsDisabled
	}

	entries, err := s.repos.Ledger(s.db).List(ctx, userID, statementMaxEntries)
	if err != nil {
		return nil, storageErr(err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "created_at", "delta", "reason", "vertical", "balance"})
	var balance int64
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		balance += e.Delta
		vertical := ""
		if e.Vertical != nil {
			vertical = *e.Vertical
		}
		_ = w.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.Delta, 10),
			e.Reason,
			vertical,
			strconv.FormatInt(balance, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("ошибка формирования CSV: %w", err)
	}

	id := uuid.NewString()
	if err := s.store.Put(ctx, statementKey(userID, id), buf.Bytes(), "text/csv"); err != nil {
		return nil, storageErr(err)
	}

	log.Printf("[StatementService:Create] Выписка %s пользователя %s: %d записей", id, userID, len(entries))
	return &apimodels.StatementResponse{ID: id, Entries: len(entries), Balance: balance}, nil
}

// Open открывает ранее сформированную выписку пользователя.
func (s *StatementService) Open(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	if s.store == nil {
		return nil, ErrStatementsDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStatementNotFound
	}
	rc, err := s.store.Get(ctx, statementKey(userID, id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrStatementNotFound
		}
		return nil, storageErr(err)
	}
	return rc, nil
}
