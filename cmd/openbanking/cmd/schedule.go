package cmd

import (
	"fmt"
	"log/slog"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/internal/batch"
	"openbankingbr/internal/components/chrono"
	libtelemetry "openbankingbr/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var scheduleCron string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron spec of the export, defaults to schedule.cron")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Export every family on a cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g := globals.Get(ctx)

		spec := g.Config.Schedule.Cron
		if scheduleCron != "" {
			spec = scheduleCron
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		libtelemetry.InstrumentPerfStats(ctx, time.Minute)

		cron := chrono.NewStandardCron(g.Clock, g.Tel)
		err = cron.Cron(spec, func() {
			report, err := runExport(ctx, a, batch.Families, g.Config.IgnoreErrors)
			if err != nil {
				g.Tel.ReportBroken("schedule.export", err)
				return
			}
			slog.Info(
				"scheduled export finished",
				"day", report.Day,
				"participants", report.Participants,
				"skipped", len(report.Skipped),
				"agencias", report.Totals[batch.FamilyAgencias],
				"produtos", report.Totals[batch.FamilyProdutos],
			)
		})
		if err != nil {
			<-cron.Stop().Done()
			return fmt.Errorf("invalid cron spec '%s': %w", spec, err)
		}
		slog.Info("export scheduled", "cron", spec)

		<-ctx.Done()
		<-cron.Stop().Done()
		return nil
	},
}
