package cmd

import (
	"fmt"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/batch"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/snapshot"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	snapshotCmd.AddCommand(snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect the snapshot database exports are copied to.",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show [yyyymmdd]",
	Short: "Show how many rows and participants were stored per family on a day, today by default.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		if g.Config.Snapshot.Target == "" {
			return fmt.Errorf("snapshot.target is not configured")
		}

		day := chrono.Today(g.Clock)
		if len(args) > 0 {
			_, err := time.Parse(chrono.DayLayout, args[0])
			if err != nil {
				return fmt.Errorf("invalid day '%s', expected yyyymmdd", args[0])
			}
			day = args[0]
		}

		store, err := snapshot.Open(g.Config.Snapshot.Target, g.Tel)
		if err != nil {
			return err
		}
		defer store.Close()

		t := utils.NewTable()
		t.SetTitle(fmt.Sprintf("Snapshot of %s", day))
		t.AppendHeader(table.Row{"Family", "Rows", "Participants"})
		for _, family := range batch.Families {
			count, err := store.Count(cmd.Context(), day, string(family))
			if err != nil {
				return err
			}
			participants, err := store.Participants(cmd.Context(), day, string(family))
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{family, count, len(participants)})
		}
		t.Render()
		return nil
	},
}
