package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RedWaffle007/sic-data-software/internal/analyze"
	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/config"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

var analyzeFile string

// artifactDir finds which stage directory holds a key.
func artifactDir(cfg *config.Config, key string) (string, error) {
	for _, dir := range []string{cfg.Output.SICExtractDir(), cfg.Output.CountyFilterDir(), cfg.Output.EnrichedDir()} {
		if artifact.Exists(dir, key) {
			return dir, nil
		}
	}
	return "", resilience.NewNotFound("artifact", key)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [key]",
	Short: "Report geographic coverage and data quality for a dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFile != "" {
			f, err := os.Open(analyzeFile)
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := analyze.CSV(f)
			if err != nil {
				return err
			}
			return printJSON(report)
		}

		if len(args) == 0 {
			return resilience.NewValidation("an artifact key or --file is required")
		}
		dir, err := artifactDir(cfg, args[0])
		if err != nil {
			return err
		}
		report, err := analyze.Artifact(dir, args[0])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "analyze a CSV file instead of a stored artifact")
	rootCmd.AddCommand(analyzeCmd)
}
