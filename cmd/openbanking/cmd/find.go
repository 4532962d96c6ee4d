package cmd

import (
	"fmt"
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/catalog"
	"openbankingbr/internal/normalize"
	"openbankingbr/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var findQuery struct {
	cnpj   string
	domain string
	id     string
	name   string
	load   bool
}

func init() {
	findCmd.Flags().StringVar(&findQuery.cnpj, "cnpj", "", "cnpj, formatted or digits only")
	findCmd.Flags().StringVar(&findQuery.domain, "domain", "", "domain of any of the participant's apis, ex. bb.com.br")
	findCmd.Flags().StringVar(&findQuery.id, "id", "", "organisation id in the directory")
	findCmd.Flags().StringVar(&findQuery.name, "name", "", "approximate name, accents and case are ignored")
	findCmd.Flags().BoolVar(&findQuery.load, "load", false, "also fetch the participant's records and show how many it publishes")
	findCmd.MarkFlagsOneRequired("cnpj", "domain", "id", "name")
	findCmd.MarkFlagsMutuallyExclusive("cnpj", "domain", "id", "name")
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find --cnpj|--domain|--id|--name <value>",
	Short: "Find a participant of the directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := catalog.Query{
			Domain: findQuery.domain,
			ID:     findQuery.id,
			Name:   findQuery.name,
		}
		if findQuery.cnpj != "" {
			cnpj, ok := normalize.CNPJ(textutil.Digits(findQuery.cnpj))
			if !ok {
				return fmt.Errorf("invalid cnpj '%s'", findQuery.cnpj)
			}
			query.CNPJ = cnpj
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, found, err := a.catalog.Find(cmd.Context(), query)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no participant matches")
		}

		t := utils.NewTable()
		t.AppendRows([]table.Row{
			{"ID", p.ID},
			{"Name", p.Name},
			{"CNPJ", formatCNPJ(p)},
			{"Registration", p.RegistrationNumber},
			{"Base URL", p.BaseURL},
		})
		for _, endpoint := range p.Endpoints {
			t.AppendRow(table.Row{"Endpoint", endpoint})
		}
		if findQuery.load {
			loaded, err := a.catalog.Load(cmd.Context(), p, catalog.AllSections)
			if err != nil {
				return err
			}
			t.AppendFooter(table.Row{"Agencias", len(loaded.Agencias)})
			t.AppendFooter(table.Row{"Produtos", len(loaded.Produtos)})
			t.AppendFooter(table.Row{"Servicos", loaded.TotalServicos()})
			t.AppendFooter(table.Row{"Pacotes", loaded.TotalPacotes()})
		}
		t.Render()
		return nil
	},
}
