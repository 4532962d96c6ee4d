package cmd

import (
	"context"
	"fmt"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/cmd/openbanking/utils"
	"openbankingbr/internal/batch"
	"openbankingbr/internal/openbanking"
	"openbankingbr/internal/snapshot"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var ignoreErrors bool

func init() {
	exportCmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "skip the participants that fail instead of aborting (overrides ignore_errors)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:       "export [all|agencias|produtos|servicos|pacotes]...",
	Short:     "Export the records of every participant to one csv file per family.",
	ValidArgs: []string{"all", "agencias", "produtos", "servicos", "pacotes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		families, err := batch.ParseFamilies(args)
		if err != nil {
			return err
		}

		g := globals.Get(cmd.Context())
		ignore := g.Config.IgnoreErrors
		if cmd.Flags().Changed("ignore-errors") {
			ignore = ignoreErrors
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := runExport(cmd.Context(), a, families, ignore)
		if err != nil {
			return err
		}
		printReport(report, a.client.Stats())
		return nil
	},
}

// runExport runs a batch with the global configuration, pushing the tables to
// the snapshot database when one is configured.
func runExport(ctx context.Context, a *app, families []batch.Family, ignore bool) (batch.Report, error) {
	g := globals.Get(ctx)

	format, err := g.Config.Format()
	if err != nil {
		return batch.Report{}, err
	}

	var sink batch.Sink
	if g.Config.Snapshot.Target != "" {
		store, err := snapshot.Open(g.Config.Snapshot.Target, g.Tel)
		if err != nil {
			return batch.Report{}, fmt.Errorf("open snapshot: %w", err)
		}
		defer store.Close()
		sink = store
	}

	exporter := batch.NewExporter(a.catalog, sink, g.Clock, g.Tel, batch.Options{
		DataDir:      g.Config.DataDir,
		Format:       format,
		Families:     families,
		IgnoreErrors: ignore,
	})
	report, err := exporter.Run(ctx)
	a.client.ReportStats()
	return report, err
}

func printReport(report batch.Report, stats openbanking.Stats) {
	t := utils.NewTable()
	t.SetTitle(fmt.Sprintf("Export of %s, %d participants", report.Day, report.Participants))
	t.AppendHeader(table.Row{"Family", "Rows", "File"})
	for _, family := range batch.Families {
		path, ok := report.Files[family]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{family, report.Totals[family], path})
	}
	if report.DirectoryFailed {
		t.AppendFooter(table.Row{"", "", "the directory could not be loaded, only headers were written"})
	}
	if len(report.Skipped) > 0 {
		t.AppendFooter(table.Row{"Skipped", len(report.Skipped), strings.Join(report.Skipped, ", ")})
	}
	t.AppendFooter(table.Row{"Requests", stats.Requests, fmt.Sprintf("%d served from cache", stats.CacheHits)})
	t.Render()
}
