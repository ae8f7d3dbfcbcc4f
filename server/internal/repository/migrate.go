package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/ShakilAhmedRego/VMV5/server/internal/repository/migrations"
	"github.com/pressly/goose/v3"
)

// gooseUp - точка подмены для тестов.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	return goose.UpContext(ctx, db, ".")
}

// Migrate применяет встроенные миграции схемы.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("ошибка выбора диалекта миграций: %w", err)
	}
	if err := gooseUp(ctx, db); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}
	log.Println("[Migrate] Миграции применены.")
	return nil
}
