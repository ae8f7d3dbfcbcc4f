package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
)

func newCreditsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Управление кредитами пользователей",
	}

	var byUsername bool
	grant := &cobra.Command{
		Use:   "grant <user> <amount>",
		Short: "Начислить кредиты пользователю",
		Long: `Добавляет в журнал положительную запись с причиной admin_grant.

Пример:
  vmvadmin credits grant 3f0c... 100
  vmvadmin credits grant --username alice 100`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("сумма должна быть положительным целым числом: %q", args[1])
			}
			db, err := opts.connect()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			repos := repository.NewPostgresManager()
			userID := args[0]
			if byUsername {
				u, lookupErr := repos.Users(db).GetUserByUsername(ctx, args[0])
				if lookupErr != nil {
					return fmt.Errorf("пользователь '%s': %w", args[0], lookupErr)
				}
				userID = u.ID
			}

			balance, err := services.NewLedgerService(db, repos).Credit(ctx, userID, amount, models.ReasonAdminGrant)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"user_id": userID, "credited": amount, "balance": balance,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Начислено %d, баланс пользователя %s: %d\n", amount, userID, balance)
			return nil
		},
	}
	grant.Flags().BoolVarP(&byUsername, "username", "u", false, "Искать пользователя по имени, а не по ID")
	cmd.AddCommand(grant)
	return cmd
}
