package services_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Фрагменты запросов, по которым sqlmock сопоставляет вызовы.
var (
	qGrantsAmong   = regexp.QuoteMeta(`= ANY($2::text[])`)
	qGrantsList    = regexp.QuoteMeta(`SELECT "record_id" FROM "dealflow_access" WHERE user_id = $1`)
	qGrantsInsert  = regexp.QuoteMeta(`INSERT INTO "dealflow_access"`)
	qLock          = regexp.QuoteMeta(`pg_advisory_xact_lock`)
	qLedgerSum     = regexp.QuoteMeta(`SELECT COALESCE(SUM(delta), 0) FROM credit_ledger`)
	qLedgerInsert  = regexp.QuoteMeta(`INSERT INTO credit_ledger`)
	qLedgerList    = regexp.QuoteMeta(`FROM credit_ledger WHERE user_id = $1 ORDER BY id DESC`)
	qLedgerDebits  = regexp.QuoteMeta(`GROUP BY vertical`)
	qUserByID      = regexp.QuoteMeta(`FROM users WHERE id=$1`)
	qUserByName    = regexp.QuoteMeta(`FROM users WHERE username=$1`)
	qUserInsert    = regexp.QuoteMeta(`INSERT INTO users`)
	userColumns    = []string{"id", "username", "password_hash", "role", "created_at", "updated_at"}
	ledgerColumns  = []string{"id", "user_id", "delta", "reason", "vertical", "created_at"}
	testManager    = repository.NewPostgresManager()
	testDealflow   = mustVertical("dealflow")
	testLegalintel = mustVertical("legalintel")
)

func mustVertical(key string) verticals.Vertical {
	v, err := verticals.Default().Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func idRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"record_id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func sumRows(sum int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"coalesce"}).AddRow(sum)
}

func insertedRows(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now())
}
