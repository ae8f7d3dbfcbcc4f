package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
)

// migrateDB применяет миграции. Подменяется в тестах.
var migrateDB = repository.Migrate

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции и создать таблицы доступов вертикалей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			db, err := opts.connect()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err = migrateDB(ctx, db.DB); err != nil {
				return err
			}
			access := services.NewAccessService(db, repository.NewPostgresManager())
			if err = access.EnsureTables(ctx, reg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Миграции применены, таблиц доступов: %d\n", reg.Len())
			return nil
		},
	}
}
