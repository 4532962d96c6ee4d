package cmd

import (
	"context"
	"errors"
	"io/fs"
	"openbankingbr/cmd/openbanking/config"
	"openbankingbr/cmd/openbanking/globals"
	"openbankingbr/internal/cache"
	"openbankingbr/internal/catalog"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/internal/openbanking"
	"openbankingbr/lib/restyutil"
	libtelemetry "openbankingbr/lib/telemetry"
	"openbankingbr/lib/util/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string

	// otelSetup is shut down by Execute once the command returns, errors included.
	otelSetup libtelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:           "openbanking",
	Short:         "openbanking fetches, caches and exports the public data of the Open Banking Brasil participants.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		otel, err := libtelemetry.SetupFromEnv(cmd.Context(), "openbanking", openbanking.Version)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err == nil {
			otelSetup = otel
		}

		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return err
		}

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Config:  cfg,
			Clock:   clock,
			Tel:     telemetry.SlogAPI{},
			DumpDir: dumpHttp,
		}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json5, searched from the working directory up by default")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "write every http request and response to this directory")
}

func Execute() {
	err := run(serviceutil.SignalContext())
	if err != nil {
		serviceutil.Fatal("openbanking failed", err)
	}
}

// run executes the command line, buffered telemetry is flushed even when the command fails.
func run(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	shutdownTelemetry()
	return err
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := otelSetup.Shutdown(ctx)
	if err != nil {
		telemetry.SlogAPI{}.ReportWarning("telemetry.shutdown", err)
	}
}

// app is what every command that talks to the participants needs.
type app struct {
	store   cache.Store
	client  *openbanking.Client
	catalog *catalog.Catalog
}

func openApp(ctx context.Context) (*app, error) {
	g := globals.Get(ctx)

	store, err := cache.Open(g.Config.Cache.Backend, g.Config.Cache.Dir)
	if err != nil {
		return nil, err
	}

	opts := g.Config.ClientOptions()
	if g.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(g.DumpDir)
		if err != nil {
			store.Close()
			return nil, err
		}
		opts.DumpOutput = output
	}

	client := openbanking.NewClient(opts, store, g.Clock, g.Tel)
	return &app{
		store:   store,
		client:  client,
		catalog: catalog.New(client, g.Tel),
	}, nil
}

func (a *app) Close() {
	err := a.store.Close()
	if err != nil {
		telemetry.SlogAPI{}.ReportWarning("cache.close", err)
	}
}
