package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/services"
)

type languageCells services.LanguageRow

func (r languageCells) Cells() []string {
	status := "Unavailable"
	if r.Available {
		status = "Available"
	}
	return []string{r.Language, status, r.Interpreters}
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "languages",
		SilenceUsage: true,
		Short:        "List interpreter availability by language",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := services.NewLanguages(a.client, a.logger).List(cmd.Context())
			if err != nil {
				return errors.New(errorLine(err))
			}
			out := cmd.OutOrStdout()
			if globals.JSON {
				return printJSON(out, rows)
			}
			cells := make([]languageCells, 0, len(rows))
			for _, r := range rows {
				cells = append(cells, languageCells(r))
			}
			printTable(out, []string{"Language", "Status", "Interpreters"}, cells)
			return nil
		},
	}
}
