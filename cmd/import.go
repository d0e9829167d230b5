package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RedWaffle007/sic-data-software/internal/config"
	"github.com/RedWaffle007/sic-data-software/internal/store"
)

var importName string

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

var importCmd = &cobra.Command{
	Use:   "import <key>",
	Short: "Import an artifact into the dataset store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := artifactDir(cfg, args[0])
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		name := importName
		if name == "" {
			name = args[0]
		}
		ds, err := store.ImportArtifact(cmd.Context(), st, dir, args[0], name)
		if err != nil {
			return err
		}
		return printJSON(ds)
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List imported datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		list, err := st.ListDatasets(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(list)
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "dataset name (defaults to the artifact key)")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(datasetsCmd)
}
