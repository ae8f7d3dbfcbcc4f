// Команда vmvadmin - инструмент оператора: миграции, список вертикалей,
// начисление кредитов и аудит журнала.
package main

import (
	"os"

	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
)

func main() {
	if err := newRootCommand(repository.NewPostgresDB).Execute(); err != nil {
		os.Exit(1)
	}
}
