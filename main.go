package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/crowdtest/internal/config"
	"github.com/parisxmas/crowdtest/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "crowdtest",
	Short: "Collect and analyze crowd-testing results",
	Long: `crowdtest runs the result submission endpoint used by the crowd-testing
page and the offline tools around it:

  serve    accept submissions and store them as result_<user>_<time>.json
  prepare  build products.json from a folder of batch-generated images
  stats    aggregate stored results into a report, CSV and JSON summary`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, closeLog, err = logging.New(cfg.Log.Level, cfg.Log.GelfAddr)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if closeLog != nil {
			closeLog()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, statsCmd, prepareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// PersistentPostRun is skipped when a command fails.
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}
