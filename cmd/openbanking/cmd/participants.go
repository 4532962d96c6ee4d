package cmd

import (
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/catalog"
	"openbankingbr/internal/model"
	"openbankingbr/internal/normalize"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(participantsCmd)
}

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "List the participants of the directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		participants, err := a.catalog.Participants(cmd.Context())
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"ID", "Name", "CNPJ", "Base URL", "Branches", "Products"})
		for _, p := range participants {
			_, branches := catalog.BranchesEndpoint(p)
			t.AppendRow(table.Row{
				p.ID,
				p.Name,
				formatCNPJ(p),
				p.BaseURL,
				yesNo(branches),
				len(catalog.ProductsEndpoints(p)),
			})
		}
		t.AppendFooter(table.Row{"", "Total", len(participants)})
		t.Render()
		return nil
	},
}

func formatCNPJ(p model.Participant) string {
	if p.CNPJ == nil {
		return ""
	}
	return normalize.FormatCNPJ(*p.CNPJ)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
