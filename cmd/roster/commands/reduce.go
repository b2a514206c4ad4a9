package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cpsroster/internal/exporter"
	"cpsroster/internal/infrastructure"
)

var reduceOutput string

var reduceCmd = &cobra.Command{
	Use:   "reduce [--output path]",
	Short: "Writes the size-reduced export from the existing snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		paths, err := cfg.GetPaths()
		if err != nil {
			return err
		}
		if err := paths.EnsureDirectories(); err != nil {
			return err
		}

		ds, err := exporter.ReadSnapshot(paths.SnapshotFile)
		if err != nil {
			return fmt.Errorf("no usable snapshot, run the pipeline first: %w", err)
		}

		out := paths.ReducedCSVFile
		if reduceOutput != "" {
			out = reduceOutput
		}
		reduced := exporter.Reduce(ds, exporter.ReduceOptions{
			JobTitlePrefix: cfg.Export.JobTitlePrefix,
			UnitNameSuffix: cfg.Export.UnitNameSuffix,
		})
		if err := exporter.NewCSVWriter(paths).WriteDataset(out, reduced); err != nil {
			return err
		}

		logger.Info("Reduced export written",
			slog.String("path", out),
			slog.Int("rows", reduced.Len()),
			slog.Int("columns", len(reduced.Columns)))
		return nil
	},
}

func init() {
	reduceCmd.Flags().StringVar(&reduceOutput, "output", "", "Destination CSV. Defaults to the reduced export in the output directory.")
	rootCmd.AddCommand(reduceCmd)
}
