package repository

// Manager выдает репозитории, привязанные к конкретному Querier:
// к пулу соединений или к открытой транзакции.
type Manager interface {
	Users(q Querier) UserRepository
	Ledger(q Querier) LedgerRepository
	Grants(q Querier) GrantRepository
	Records(q Querier) RecordRepository
}

// PostgresManager - реализация Manager для PostgreSQL.
type PostgresManager struct{}

// NewPostgresManager создает менеджер репозиториев PostgreSQL.
func NewPostgresManager() *PostgresManager {
	return &PostgresManager{}
}

func (PostgresManager) Users(q Querier) UserRepository     { return NewPostgresUserRepository(q) }
func (PostgresManager) Ledger(q Querier) LedgerRepository  { return NewPostgresLedgerRepository(q) }
func (PostgresManager) Grants(q Querier) GrantRepository   { return NewPostgresGrantRepository(q) }
func (PostgresManager) Records(q Querier) RecordRepository { return NewPostgresRecordRepository(q) }
