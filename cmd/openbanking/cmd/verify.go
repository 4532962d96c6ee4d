package cmd

import (
	"fmt"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/batch"
	"openbankingbr/internal/catalog"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [all|agencias|produtos|servicos|pacotes]...",
	Short: "Check that today's exported files contain exactly the records of the participants.",
	Long: "Check that today's exported files contain exactly the records of the participants.\n" +
		"The participants are loaded again, which is served from the cache when export ran today.",
	ValidArgs: []string{"all", "agencias", "produtos", "servicos", "pacotes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		families, err := batch.ParseFamilies(args)
		if err != nil {
			return err
		}
		g := globals.Get(cmd.Context())
		format, err := g.Config.Format()
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		participants, err := a.catalog.Participants(cmd.Context())
		if err != nil {
			return err
		}
		loaded := make([]model.Participant, 0, len(participants))
		for _, p := range participants {
			populated, err := a.catalog.Load(cmd.Context(), p, catalog.AllSections)
			if err != nil {
				// export skips these too when errors are ignored
				g.Tel.ReportWarning("verify.load", p.Name, err)
				continue
			}
			loaded = append(loaded, populated)
		}

		day := chrono.Today(g.Clock)
		t := utils.NewTable()
		t.AppendHeader(table.Row{"Family", "File", "Model", "Missing", "Unexpected"})
		mismatched := 0
		for _, family := range families {
			path := batch.FileName(g.Config.DataDir, day, family)
			fileKeys, err := batch.ReadKeys(path, family, format)
			if err != nil {
				return fmt.Errorf("%s: %w", family, err)
			}
			modelKeys := batch.ModelKeys(loaded, family)

			missing := 0
			for key := range modelKeys {
				if !fileKeys[key] {
					missing++
				}
			}
			unexpected := 0
			for key := range fileKeys {
				if !modelKeys[key] {
					unexpected++
				}
			}
			if missing > 0 || unexpected > 0 {
				mismatched++
			}
			t.AppendRow(table.Row{family, len(fileKeys), len(modelKeys), missing, unexpected})
		}
		t.Render()

		if mismatched > 0 {
			return fmt.Errorf("%d families do not match the participants", mismatched)
		}
		return nil
	},
}
