package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
)

const envDatabaseDSN = "DATABASE_DSN"

// validFormats - допустимые форматы вывода.
var validFormats = []string{"text", "json"}

// rootOptions - глобальные флаги всех команд.
type rootOptions struct {
	DatabaseDSN   string
	VerticalsFile string
	Format        string

	openDB func(dsn string) (*sqlx.DB, error)
}

// newRootCommand создает корневую команду. openDB подменяется в тестах.
func newRootCommand(openDB func(dsn string) (*sqlx.DB, error)) *cobra.Command {
	opts := &rootOptions{openDB: openDB}

	cmd := &cobra.Command{
		Use:           "vmvadmin",
		Short:         "Администрирование сервера VMV",
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("неизвестный формат %q: допустимы %v", opts.Format, validFormats)
			}
			if opts.DatabaseDSN == "" {
				opts.DatabaseDSN = os.Getenv(envDatabaseDSN)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseDSN, "database-dsn", "",
		"Строка подключения к БД (env: "+envDatabaseDSN+")")
	cmd.PersistentFlags().StringVar(&opts.VerticalsFile, "verticals", os.Getenv("VERTICALS_FILE"),
		"YAML-файл с описанием вертикалей (env: VERTICALS_FILE)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "Формат вывода (text|json)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newVerticalsCommand(opts))
	cmd.AddCommand(newCreditsCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))

	return cmd
}

// connect открывает соединение с БД. Вызывающий закрывает его.
func (o *rootOptions) connect() (*sqlx.DB, error) {
	if o.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	db, err := o.openDB(o.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return db, nil
}

func (o *rootOptions) registry() (*verticals.Registry, error) {
	return verticals.LoadFile(o.VerticalsFile)
}

// writeJSON печатает v с отступами.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
