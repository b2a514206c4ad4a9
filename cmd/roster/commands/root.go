package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cpsroster/internal/config"
	"cpsroster/pkg/contracts"
)

var (
	configFile string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "roster",
	Short:         "roster builds the joined CPS employee position roster.",
	Version:       contracts.GetFullVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a roster.yaml file. Defaults to ROSTER_CONFIG or the well-known locations.")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding raw/, csv/ and output/.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
}

// ExecuteContext runs the CLI and returns the process exit code
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// loadConfig reads configuration and applies the persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.Paths.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	return cfg, cfg.Validate()
}
