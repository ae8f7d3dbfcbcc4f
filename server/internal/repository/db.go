package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации
)

// PoolConfig - параметры пула соединений.
// Транзакция разблокировки держит соединение, пока ждет advisory-блокировку пользователя,
// поэтому MaxOpenConns ограничивает и число одновременных разблокировок.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// PingTimeout ограничивает проверку соединения при старте.
	PingTimeout time.Duration
}

// DefaultPoolConfig возвращает параметры пула по умолчанию.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// NewPostgresDB создает и возвращает новое подключение к PostgreSQL с пулом по умолчанию.
func NewPostgresDB(dsn string) (*sqlx.DB, error) {
	return OpenPostgres(context.Background(), dsn, DefaultPoolConfig())
}

// OpenPostgres подключается к PostgreSQL и проверяет соединение.
func OpenPostgres(ctx context.Context, dsn string, cfg PoolConfig) (*sqlx.DB, error) {
	log.Printf("Подключение к PostgreSQL...")
	db, err := open(ctx, "postgres", dsn, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Подключение к PostgreSQL успешно установлено, пул: %d соединений.", cfg.MaxOpenConns)
	return db, nil
}

func open(ctx context.Context, driver, dsn string, cfg PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия соединения с БД после неудачного пинга: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка подключения к БД (ping): %w", err)
	}
	return db, nil
}
