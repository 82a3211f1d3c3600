package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/crowdtest/internal/stats"
	"github.com/parisxmas/crowdtest/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate stored results into a report",
	Long: `Reads every *.json file in the results directory, plus result_*.json
files downloaded next to it, and writes report.txt, detailed_records.csv and
summary.json to the output directory (default: statistics next to results).`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().String("results-dir", "", "directory holding result files (default from config)")
	statsCmd.Flags().String("output-dir", "", "where to write the report files")
}

func runStats(cmd *cobra.Command, args []string) error {
	resultsDir := cfg.ResultsDir
	if v, _ := cmd.Flags().GetString("results-dir"); v != "" {
		resultsDir = v
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(filepath.Clean(resultsDir)), "statistics")
	}

	subs, failed := stats.Load(storage.NewStore(resultsDir))
	for _, f := range failed {
		logger.Warn("skipping result file", zap.String("path", f.Path), zap.Error(f.Err))
	}
	if len(subs) == 0 {
		return fmt.Errorf("no result files found in %s", resultsDir)
	}
	logger.Info("loaded result files", zap.Int("count", len(subs)))

	now := time.Now()
	s := stats.Analyze(subs)
	fmt.Fprintln(cmd.OutOrStdout(), s.Report(now))

	paths, err := s.Write(outputDir, now)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", p)
	}
	return nil
}
