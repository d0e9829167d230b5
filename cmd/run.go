package main

import (
	"github.com/spf13/cobra"

	"github.com/RedWaffle007/sic-data-software/internal/config"
	"github.com/RedWaffle007/sic-data-software/internal/county"
	"github.com/RedWaffle007/sic-data-software/internal/pipeline"
	"github.com/RedWaffle007/sic-data-software/internal/resolve"
	"github.com/RedWaffle007/sic-data-software/internal/sic"
)

var (
	runSICCodes []string
	runCounties []string
	runForce    bool
)

// buildOrchestrator wires the extract and resolve stages from config. The
// postcode reference is loaded up front so a bad path fails before any work.
func buildOrchestrator(cfg *config.Config) (*pipeline.Orchestrator, error) {
	lookup, err := resolve.LoadPostcodeLookup(cfg.Data.NSPL)
	if err != nil {
		return nil, err
	}

	return &pipeline.Orchestrator{
		Extractor: &sic.Extractor{
			SnapshotPath: cfg.Data.Snapshot,
			OutputDir:    cfg.Output.SICExtractDir(),
		},
		Resolver: &resolve.Resolver{
			OutputDir: cfg.Output.CountyFilterDir(),
			Lookup:    lookup,
			Aliases:   county.LoadAliases(cfg.Data.ConfigDir),
		},
	}, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract companies by SIC code and resolve counties",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		resp, err := orch.Execute(cmd.Context(), pipeline.Request{
			SICCodes:     runSICCodes,
			Counties:     runCounties,
			ForceRefresh: runForce,
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runSICCodes, "sic", nil, "SIC codes to extract (repeatable or comma-separated)")
	runCmd.Flags().StringSliceVar(&runCounties, "county", nil, "counties to filter to (omit to keep all)")
	runCmd.Flags().BoolVar(&runForce, "force", false, "rebuild even if a cached artifact exists")
	_ = runCmd.MarkFlagRequired("sic")
	rootCmd.AddCommand(runCmd)
}
