package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/config"
	"github.com/RedWaffle007/sic-data-software/internal/enrich"
	"github.com/RedWaffle007/sic-data-software/internal/fetcher"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/pkg/anthropic"
	"github.com/RedWaffle007/sic-data-software/pkg/companieshouse"
	"github.com/RedWaffle007/sic-data-software/pkg/serper"
)

var (
	enrichLimit int
	enrichForce bool
)

func buildEnricher(cfg *config.Config) (*enrich.Engine, error) {
	if cfg.CompaniesHouse.Key == "" {
		return nil, resilience.NewValidation("companies_house.key is not configured")
	}

	opts := []companieshouse.Option{
		companieshouse.WithMaxRetries(cfg.CompaniesHouse.MaxRetries),
		companieshouse.WithMinDelay(time.Duration(cfg.CompaniesHouse.MinDelaySecs * float64(time.Second))),
	}
	if cfg.CompaniesHouse.BaseURL != "" {
		opts = append(opts, companieshouse.WithBaseURL(cfg.CompaniesHouse.BaseURL))
	}

	return &enrich.Engine{
		Registry:  companieshouse.NewClient(cfg.CompaniesHouse.Key, opts...),
		OutputDir: cfg.Output.EnrichedDir(),
		BatchSize: cfg.Enrich.BatchSize,
	}, nil
}

func buildDirectoryEngine(cfg *config.Config) (*enrich.DirectoryEngine, error) {
	if cfg.Serper.Key == "" {
		return nil, resilience.NewValidation("serper.key is not configured")
	}
	if cfg.Anthropic.Key == "" {
		return nil, resilience.NewValidation("anthropic.key is not configured")
	}

	var searchOpts []serper.Option
	if cfg.Serper.BaseURL != "" {
		searchOpts = append(searchOpts, serper.WithBaseURL(cfg.Serper.BaseURL))
	}

	return &enrich.DirectoryEngine{
		Search:              serper.NewClient(cfg.Serper.Key, searchOpts...),
		Pages:               fetcher.New(fetcher.Options{}),
		LLM:                 anthropic.NewClient(cfg.Anthropic.Key),
		OutputDir:           cfg.Output.EnrichedDir(),
		Model:               cfg.Anthropic.Model,
		DirectoryDomain:     cfg.Enrich.DirectoryDomain,
		BatchSize:           cfg.Enrich.BatchSizeV2,
		ConfidenceThreshold: cfg.Enrich.ConfidenceThreshold,
	}, nil
}

// logProgress reports enrichment progress at a readable cadence.
func logProgress(done, total int) {
	if done%25 == 0 || done == total {
		zap.L().Info("enrichment progress", zap.Int("done", done), zap.Int("total", total))
	}
}

func enrichParams(cfg *config.Config, key string) (enrich.Params, error) {
	dir, err := artifactDir(cfg, key)
	if err != nil {
		return enrich.Params{}, err
	}
	return enrich.Params{
		SourceDir:    dir,
		SourceKey:    key,
		Limit:        enrichLimit,
		ForceRefresh: enrichForce,
		Progress:     logProgress,
	}, nil
}

var enrichCmd = &cobra.Command{
	Use:   "enrich <key>",
	Short: "Enrich a dataset with officers and control data from the Companies House API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEnricher(cfg)
		if err != nil {
			return err
		}
		params, err := enrichParams(cfg, args[0])
		if err != nil {
			return err
		}

		result, err := engine.Run(cmd.Context(), params)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var enrichV2Cmd = &cobra.Command{
	Use:   "enrich-v2 <key>",
	Short: "Enrich a dataset with contact details from business directory search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildDirectoryEngine(cfg)
		if err != nil {
			return err
		}
		params, err := enrichParams(cfg, args[0])
		if err != nil {
			return err
		}

		result, err := engine.Run(cmd.Context(), params)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	for _, c := range []*cobra.Command{enrichCmd, enrichV2Cmd} {
		c.Flags().IntVar(&enrichLimit, "limit", 0, "process at most this many rows (0 for all)")
		c.Flags().BoolVar(&enrichForce, "force", false, "rebuild even if a cached artifact exists")
		rootCmd.AddCommand(c)
	}
}
