package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cpsroster/internal/app"
	"cpsroster/pkg/contracts/domain"
)

var runFlags struct {
	replace bool
	offline bool
	reduce  bool
	workers int
	listen  string
	sqlite  string
}

var runCmd = &cobra.Command{
	Use:   "run [--replace] [--workers N] [--offline] [--listen addr]",
	Short: "Downloads new roster documents, reads them and writes the joined dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("replace") {
			cfg.Processing.Replace = runFlags.replace
		}
		if flags.Changed("offline") {
			cfg.Source.Offline = runFlags.offline
		}
		if flags.Changed("reduce") {
			cfg.Export.Reduce = runFlags.reduce
		}
		if flags.Changed("workers") {
			cfg.Processing.Workers = runFlags.workers
		}
		if flags.Changed("listen") {
			cfg.Telemetry.ListenAddr = runFlags.listen
		}
		if flags.Changed("sqlite") {
			cfg.Export.SQLitePath = runFlags.sqlite
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		application, err := app.NewApplication(cfg, app.Options{})
		if err != nil {
			return err
		}
		defer application.Stop(context.Background())

		report, runErr := application.Run(cmd.Context())
		if report != nil {
			if err := printReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.replace, "replace", false, "Re-read every document, ignoring the per-file cache and the snapshot.")
	f.BoolVar(&runFlags.offline, "offline", false, "Skip the listing page and process only documents already on disk.")
	f.BoolVar(&runFlags.reduce, "reduce", false, "Also write the size-reduced export.")
	f.IntVar(&runFlags.workers, "workers", 0, "Number of documents read concurrently.")
	f.StringVar(&runFlags.listen, "listen", "", "Serve run status and metrics on this address while running.")
	f.StringVar(&runFlags.sqlite, "sqlite", "", "Also write the dataset to this SQLite database.")
	rootCmd.AddCommand(runCmd)
}

func printReport(w io.Writer, report *domain.BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
