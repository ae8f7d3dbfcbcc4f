package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
)

// errAuditFindings - аудит нашел нарушения. Код выхода ненулевой, чтобы команду можно было звать из cron.
var errAuditFindings = errors.New("найдены нарушения")

func newAuditCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <user-id>",
		Short: "Сверить журнал кредитов пользователя с выданными доступами",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			db, err := opts.connect()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := services.NewAuditService(db, repository.NewPostgresManager(), reg).
				Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				if err = writeJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Пользователь %s, баланс %d\n", report.UserID, report.Balance)
				if report.OK() {
					fmt.Fprintln(out, "Нарушений не найдено")
				}
				for _, f := range report.Findings {
					fmt.Fprintf(out, "- %s %s: %s\n", f.Kind, f.Vertical, f.Detail)
				}
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d", errAuditFindings, len(report.Findings))
			}
			return nil
		},
	}
}
