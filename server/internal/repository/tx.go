package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Querier - общее подмножество *sqlx.DB и *sqlx.Tx.
// Репозитории работают через него, поэтому одинаково используются и вне, и внутри транзакции.
type Querier = sqlx.ExtContext

// WithTx открывает транзакцию, выполняет fn и фиксирует её.
// При ошибке или панике в fn транзакция откатывается, паника пробрасывается дальше.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context, tx Querier) error) error {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithTxOptions - WithTx с заданным уровнем изоляции и режимом транзакции.
func WithTxOptions(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx Querier) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[Tx] Ошибка отката транзакции: %v", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("ошибка фиксации транзакции: %w", commitErr)
		}
	}()

	return fn(ctx, tx)
}
