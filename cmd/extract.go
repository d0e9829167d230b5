package main

import (
	"github.com/spf13/cobra"

	"github.com/RedWaffle007/sic-data-software/internal/sic"
)

var (
	extractSICCodes []string
	extractForce    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract companies by SIC code from the bulk snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ex := &sic.Extractor{
			SnapshotPath: cfg.Data.Snapshot,
			OutputDir:    cfg.Output.SICExtractDir(),
		}

		result, err := ex.Extract(cmd.Context(), sic.Params{
			SICCodes:     extractSICCodes,
			ForceRefresh: extractForce,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractSICCodes, "sic", nil, "SIC codes to extract (repeatable or comma-separated)")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "rebuild even if a cached artifact exists")
	_ = extractCmd.MarkFlagRequired("sic")
	rootCmd.AddCommand(extractCmd)
}
