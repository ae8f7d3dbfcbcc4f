package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ShakilAhmedRego/VMV5/models"
)

func newVerticalsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verticals",
		Short: "Работа с реестром вертикалей",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Показать зарегистрированные вертикали",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				list := make([]models.VerticalInfo, 0, reg.Len())
				for _, v := range reg.List() {
					list = append(list, models.VerticalInfo{
						Key: v.Key, Label: v.Label, IDField: v.RecordIDField, Procedure: v.Procedure,
					})
				}
				return writeJSON(out, list)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tRECORDS\tGRANTS\tPROCEDURE")
			for _, v := range reg.List() {
				fmt.Fprintf(tw, "%s\t%s.%s\t%s.%s\t%s(%s)\n",
					v.Key, v.RecordTable, v.RecordIDField, v.GrantTable, v.GrantIDField, v.Procedure, v.ProcedureParam)
			}
			return tw.Flush()
		},
	})
	return cmd
}
