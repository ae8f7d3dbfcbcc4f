package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	apimodels "github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
)

// Виды нарушений, которые находит аудит.
const (
	FindingNegativeBalance = "negative_balance"
	FindingGrantMismatch   = "grant_debit_mismatch"
	FindingUnknownVertical = "unknown_vertical_debit"
)

// AuditService сверяет журнал кредитов с выданными доступами.
// Найденные нарушения только сообщаются, ничего не исправляется.
type AuditService struct {
	db       *sqlx.DB
	repos    repository.Manager
	registry *verticals.Registry
}

// NewAuditService создает сервис аудита.
func NewAuditService(db *sqlx.DB, repos repository.Manager, registry *verticals.Registry) *AuditService {
	return &AuditService{db: db, repos: repos, registry: registry}
}

// snapshot - все чтения аудита видят одно состояние БД: разблокировка,
// зафиксированная во время проверки, видна целиком или не видна совсем.
var snapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// Check проверяет, что баланс неотрицателен и что в каждой вертикали
// число доступов равно сумме списаний за разблокировку.
// Блокировку пользователя не берет и разблокировкам не мешает.
func (s *AuditService) Check(ctx context.Context, userID string) (*apimodels.AuditReport, error) {
	var report *apimodels.AuditReport
	err := repository.WithTxOptions(ctx, s.db, snapshot, func(ctx context.Context, tx repository.Querier) error {
		var err error
		report, err = s.check(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, storageErr(err)
	}

	if !report.OK() {
		log.Printf("[AuditService:Check] %v: пользователь %s, нарушений %d",
			ErrInvariantViolation, userID, len(report.Findings))
	}
	return report, nil
}

func (s *AuditService) check(ctx context.Context, q repository.Querier, userID string) (*apimodels.AuditReport, error) {
	ledger := s.repos.Ledger(q)
	grants := s.repos.Grants(q)

	balance, err := ledger.Sum(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := &apimodels.AuditReport{UserID: userID, Balance: balance, Findings: []apimodels.AuditFinding{}}
	if balance < 0 {
		report.Findings = append(report.Findings, apimodels.AuditFinding{
			Kind:   FindingNegativeBalance,
			Detail: fmt.Sprintf("баланс %d", balance),
		})
	}

	debits, err := ledger.DebitsByVertical(ctx, userID)
	if err != nil {
		return nil, err
	}
	debited := make(map[string]int64, len(debits))
	for _, d := range debits {
		debited[d.Vertical] = d.Debited
	}

	for _, v := range s.registry.List() {
		count, err := grants.Count(ctx, v, userID)
		if err != nil {
			return nil, err
		}
		if count != debited[v.Key] {
			report.Findings = append(report.Findings, apimodels.AuditFinding{
				Kind:     FindingGrantMismatch,
				Vertical: v.Key,
				Detail:   fmt.Sprintf("доступов %d, списано %d", count, debited[v.Key]),
			})
		}
		delete(debited, v.Key)
	}
	for _, d := range debits {
		if _, left := debited[d.Vertical]; left {
			report.Findings = append(report.Findings, apimodels.AuditFinding{
				Kind:     FindingUnknownVertical,
				Vertical: d.Vertical,
				Detail:   fmt.Sprintf("списано %d в незарегистрированной вертикали", d.Debited),
			})
		}
	}
	return report, nil
}
