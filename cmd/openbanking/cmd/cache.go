package cmd

import (
	"fmt"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/cache"
	"openbankingbr/internal/components/chrono"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the response cache.",
}

func openCache(cmd *cobra.Command) (cache.Store, error) {
	g := globals.Get(cmd.Context())
	return cache.Open(g.Config.Cache.Backend, g.Config.Cache.Dir)
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove every cached response that was not fetched today.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		today := chrono.Today(globals.Get(cmd.Context()).Clock)
		removed, err := store.Prune(cmd.Context(), today)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries older than %s\n", removed, today)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many responses are cached per day.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Day", "Entries", "Bytes"})
		entries := 0
		var bytes int64
		for _, day := range stats {
			t.AppendRow(table.Row{day.Day, day.Entries, day.Bytes})
			entries += day.Entries
			bytes += day.Bytes
		}
		t.AppendFooter(table.Row{"Total", entries, bytes})
		t.Render()
		return nil
	},
}
