package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <key>",
	Short: "Export an artifact as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := artifactDir(cfg, args[0])
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = args[0] + "." + exportFormat
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := export.Artifact(f, dir, args[0], exportFormat); err != nil {
			return err
		}
		zap.L().Info("exported artifact", zap.String("key", args[0]), zap.String("path", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (defaults to <key>.<format>)")
	rootCmd.AddCommand(exportCmd)
}
